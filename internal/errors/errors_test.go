package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkedErrorsResolveStatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing price configuration",
			err:        NewError("missing price id").WithHint("Missing Stripe price id for selected plan").Mark(ErrConfiguration),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeConfiguration,
		},
		{
			name:       "missing session id",
			err:        NewError("session id is empty").WithHint("Missing session_id").Mark(ErrMissingSessionID),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeMissingSessionID,
		},
		{
			name:       "provider failure",
			err:        NewError("stripe said no").Mark(ErrProvider),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeProvider,
		},
		{
			name:       "unmarked error",
			err:        NewError("boom").Error(),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeSystemError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, HTTPStatusFromErr(tt.err))
			assert.Equal(t, tt.wantCode, CodeFromErr(tt.err))
		})
	}
}

func TestDisplayMessage(t *testing.T) {
	err := NewError("internal detail").WithHint("Payment not completed").Mark(ErrSessionUnpaid)
	assert.Equal(t, "Payment not completed", DisplayMessage(err, "fallback"))
	assert.True(t, IsSessionUnpaid(err))
	assert.False(t, IsProvider(err))

	plain := NewError("no hint").Mark(ErrSystem)
	assert.Equal(t, "fallback", DisplayMessage(plain, "fallback"))
}

func TestFromCode(t *testing.T) {
	assert.True(t, Is(FromCode(ErrCodeConfiguration), ErrConfiguration))
	assert.True(t, Is(FromCode("something_new"), ErrProvider))
}

func TestWrappedErrorKeepsMark(t *testing.T) {
	inner := NewError("dial tcp: timeout").Mark(ErrNetwork)
	outer := WithError(inner).WithMessage("confirm session").WithHint("Network unavailable").Mark(ErrNetwork)
	assert.True(t, IsNetwork(outer))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromErr(outer))
}
