// Copyright 2026 The Relquery Gateway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline implements component G: orchestrating components
// A through F into the four public operations, under the explicit state
// machine of spec §4.7.
package pipeline

// State is one stage of a single request's lifecycle.
type State string

const (
	New             State = "NEW"
	ResolvedConn    State = "RESOLVED_CONN"
	ResolvedSchema  State = "RESOLVED_SCHEMA"
	Assembled       State = "ASSEMBLED"
	Executing       State = "EXECUTING"
	Streaming       State = "STREAMING"
	Completed       State = "COMPLETED"
	Done            State = "DONE"
	Failed          State = "FAILED"
)

// Transition tracks one request's progress through the pipeline for
// diagnostics; failures transition to Failed from any prior state and
// record the error that caused it.
type Transition struct {
	state State
	err   error
}

func newTransition() *Transition {
	return &Transition{state: New}
}

func (t *Transition) advance(s State) {
	t.state = s
}

func (t *Transition) fail(err error) error {
	t.state = Failed
	t.err = err
	return err
}

// State reports the transition's current state.
func (t *Transition) State() State {
	return t.state
}
