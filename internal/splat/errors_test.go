// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package splat

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"allocation", Errorf(ErrAllocation, "race", "no pool"), -ENOMEM},
		{"busy", Errorf(ErrBusy, "tryenter", "held"), -EBUSY},
		{"not found", errors.Wrap(ErrNotFound, "subsystem"), -ENOENT},
		{"submission", Wrap(ErrSubmission, "race", io.EOF), -EINVAL},
		{"invalid state", Errorf(ErrInvalidState, "race", "tag"), -EINVAL},
		{"assertion", Errorf(ErrAssertion, "owner", "wrong owner"), -EINVAL},
		{"wrapped twice", errors.WithMessage(Wrap(ErrAllocation, "tryenter", io.EOF), "init"), -ENOMEM},
		{"unclassified", io.ErrUnexpectedEOF, -EINVAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrAssertion, KindOf(Errorf(ErrAssertion, "owned", "x")))
	assert.Equal(t, ErrNotFound, KindOf(errors.Wrapf(ErrNotFound, "test %q", "nope")))
	assert.Nil(t, KindOf(io.EOF))
	assert.Nil(t, KindOf(nil))
}

func TestError(t *testing.T) {
	err := Wrap(ErrSubmission, "race", io.EOF)
	require.Error(t, err)

	assert.Equal(t, "race: submission error: EOF", err.Error())
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.False(t, errors.Is(err, ErrAssertion))
	assert.True(t, errors.Is(err, io.EOF), "cause must stay reachable")

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "race", serr.Op)

	e := Errorf(ErrAssertion, "owner", "Owner() = %d", 7)
	assert.Equal(t, "owner: assertion failure: Owner() = 7", e.Error())
	assert.Nil(t, e.Unwrap())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(ErrAllocation, "tryenter", nil))
}
