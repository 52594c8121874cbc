package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain app error", err: InvalidCredentials(), want: KindInvalidCredentials},
		{name: "wrapped app error", err: fmt.Errorf("auth.Login: %w", ExpiredToken(cause)), want: KindExpiredToken},
		{name: "foreign error", err: cause, want: KindInternal},
		{name: "nil", err: nil, want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("op: %w", DataAccess(errors.New("timeout")))

	assert.True(t, IsKind(err, KindDataAccessFailure))
	assert.False(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(errors.New("x"), KindDataAccessFailure))
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := DataAccess(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, MsgDataAccessFailure, err.Message)
}

func TestFrom_HidesForeignCause(t *testing.T) {
	got := From(errors.New("pq: secret internals"))

	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, MsgInternal, got.Message)
}

func TestPlanMismatch(t *testing.T) {
	err := PlanMismatch("premium", "standard")

	assert.Equal(t, KindPlanMismatch, err.Kind)
	assert.Equal(t, "this resource requires the premium plan", err.Message)
	assert.Equal(t, "standard", err.Details["current_plan"])
}

func TestMalformedRequest(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := MalformedRequest(cause)

	assert.Equal(t, KindMalformedRequest, err.Kind)
	assert.Equal(t, MsgMalformedRequest, err.Message)
	assert.ErrorIs(t, err, cause)
}
