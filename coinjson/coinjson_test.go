// Copyright (c) 2014-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinjson

import (
	"encoding/json"
	"testing"
)

func TestNewResponseMarshalsResult(t *testing.T) {
	resp, err := NewResponse(1, &GetValueResult{Value: 5000})
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}
	var got GetValueResult
	if err := json.Unmarshal(resp.Result, &got); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if got.Value != 5000 {
		t.Fatalf("expected value 5000, got %d", got.Value)
	}
	if resp.Error != nil {
		t.Fatal("expected no error on a successful response")
	}
}

func TestNewErrorResponseCarriesMessage(t *testing.T) {
	resp := NewErrorResponse("abc", -32600, "invalid request")
	if resp.Error == nil || resp.Error.Message != "invalid request" {
		t.Fatalf("expected error message to round-trip, got %+v", resp.Error)
	}
	if resp.ID != "abc" {
		t.Fatalf("expected id to round-trip, got %v", resp.ID)
	}
}

func TestErrorImplementsErrorInterface(t *testing.T) {
	var err error = &Error{Code: 1, Message: "boom"}
	if err.Error() != "boom" {
		t.Fatalf("expected Error() to return the message, got %q", err.Error())
	}
}
