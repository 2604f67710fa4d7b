package finance

import (
	"testing"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	payableID := uuid.New()
	amount := valueobject.NewMoneyBRLFromFloat(500)

	tests := []struct {
		name      string
		payableID uuid.UUID
		amount    valueobject.Money
		method    PaymentMethod
		wantCode  string
	}{
		{"valid pix payment", payableID, amount, PaymentMethodPix, ""},
		{"valid boleto payment", payableID, amount, PaymentMethodBoleto, ""},
		{"nil payable", uuid.Nil, amount, PaymentMethodPix, "INVALID_PAYABLE_ID"},
		{"zero amount", payableID, valueobject.ZeroBRL(), PaymentMethodPix, "INVALID_AMOUNT"},
		{"negative amount", payableID, valueobject.NewMoneyBRLFromFloat(-10), PaymentMethodPix, "INVALID_AMOUNT"},
		{"unknown method", payableID, amount, PaymentMethod("WIRE"), "INVALID_METHOD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(tt.payableID, tt.amount, tt.method, nil, "", "")
			if tt.wantCode != "" {
				require.Error(t, err)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, tt.wantCode, domainErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PaymentStatusPending, p.Status)
			assert.NotEqual(t, uuid.Nil, p.ID)
		})
	}
}

func TestPayment_Confirm(t *testing.T) {
	p, err := NewPayment(uuid.New(), valueobject.NewMoneyBRLFromFloat(100), PaymentMethodPix, nil, "", "")
	require.NoError(t, err)

	require.NoError(t, p.Confirm())
	assert.Equal(t, PaymentStatusConfirmed, p.Status)
	require.NotNil(t, p.ConfirmedAt)

	// confirming twice fails
	err = p.Confirm()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.ErrorKindState, domainErr.Kind)
}

func TestPayment_Cancel(t *testing.T) {
	t.Run("pending payment cancels", func(t *testing.T) {
		p, err := NewPayment(uuid.New(), valueobject.NewMoneyBRLFromFloat(100), PaymentMethodPix, nil, "", "")
		require.NoError(t, err)
		assert.True(t, p.CanCancel())

		require.NoError(t, p.Cancel())
		assert.Equal(t, PaymentStatusCancelled, p.Status)
		assert.NotNil(t, p.CancelledAt)
		assert.False(t, p.CanCancel())
	})

	t.Run("confirmed payment does not cancel", func(t *testing.T) {
		p, err := NewPayment(uuid.New(), valueobject.NewMoneyBRLFromFloat(100), PaymentMethodPix, nil, "", "")
		require.NoError(t, err)
		require.NoError(t, p.Confirm())

		err = p.Cancel()
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "PAYMENT_CONFIRMED", domainErr.Code)
		assert.Equal(t, PaymentStatusConfirmed, p.Status)
	})
}
