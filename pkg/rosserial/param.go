// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "errors"

// ErrParamTimeout is returned when the peer does not answer a parameter
// request within the caller's deadline.
var ErrParamTimeout = errors.New("parameter request timed out")

// ErrParamMismatch is returned by the typed accessors when the response
// holds a different number of values than the caller expected. The
// response is consumed regardless; a retry needs a fresh request.
var ErrParamMismatch = errors.New("parameter length mismatch")

// GetParam sends a parameter request and blocks cooperatively until the
// response arrives or timeoutMillis elapse. Blocking means repeatedly
// calling Spin, so inbound traffic keeps flowing while waiting.
func (n *Node) GetParam(name string, timeoutMillis uint64) (*ParamResponse, error) {
	n.paramReceived = false
	if err := n.Publish(TopicIDParameter, &RequestParam{Name: name}); err != nil {
		return nil, err
	}
	start := n.clock.Millis()
	for !n.paramReceived {
		if _, err := n.Spin(); err != nil {
			return nil, err
		}
		if n.clock.Millis()-start > timeoutMillis {
			return nil, ErrParamTimeout
		}
	}
	resp := n.paramResp
	return &resp, nil
}

// GetParamInts fetches an integer-array parameter of exactly length values.
func (n *Node) GetParamInts(name string, length int, timeoutMillis uint64) ([]int32, error) {
	resp, err := n.GetParam(name, timeoutMillis)
	if err != nil {
		return nil, err
	}
	if len(resp.Ints) != length {
		return nil, ErrParamMismatch
	}
	return resp.Ints, nil
}

// GetParamFloats fetches a float-array parameter of exactly length values.
func (n *Node) GetParamFloats(name string, length int, timeoutMillis uint64) ([]float32, error) {
	resp, err := n.GetParam(name, timeoutMillis)
	if err != nil {
		return nil, err
	}
	if len(resp.Floats) != length {
		return nil, ErrParamMismatch
	}
	return resp.Floats, nil
}

// GetParamStrings fetches a string-array parameter of exactly length values.
func (n *Node) GetParamStrings(name string, length int, timeoutMillis uint64) ([]string, error) {
	resp, err := n.GetParam(name, timeoutMillis)
	if err != nil {
		return nil, err
	}
	if len(resp.Strings) != length {
		return nil, ErrParamMismatch
	}
	return resp.Strings, nil
}
