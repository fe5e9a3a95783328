package nagad

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantPurpose(t *testing.T) {
	t.Parallel()

	tests := map[Variant]Purpose{
		VariantRegular:   PurposeTransaction,
		VariantAuthorize: PurposeTokenGeneration,
		VariantTokenized: PurposeTokenTransaction,
	}
	for variant, want := range tests {
		got, ok := variant.Purpose()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := Variant("").Purpose()
	assert.False(t, ok)
}

func TestSessionTransitions(t *testing.T) {
	t.Parallel()

	s := &CheckoutSession{State: SessionCreated}
	require.NoError(t, s.advance(SessionInitialized))
	require.NoError(t, s.advance(SessionDecrypted))
	require.NoError(t, s.advance(SessionCompleted))
	assert.True(t, s.State.Terminal())

	err := s.advance(SessionInitialized)
	require.True(t, IsErrorType(err, ProtocolError))
	assert.Equal(t, SessionCompleted, s.State)
	assert.Nil(t, s.Err)
}

func TestSessionSkippingAStepFails(t *testing.T) {
	t.Parallel()

	s := &CheckoutSession{State: SessionCreated}
	err := s.advance(SessionDecrypted)
	require.True(t, IsErrorType(err, ProtocolError))
	assert.Equal(t, SessionFailed, s.State)
	assert.Equal(t, err, s.Err)

	require.Error(t, s.advance(SessionInitialized))
	assert.Equal(t, SessionFailed, s.State)
	assert.Equal(t, err, s.Err, "first failure is kept")
}

func TestSessionExpect(t *testing.T) {
	t.Parallel()

	var nilSession *CheckoutSession
	require.True(t, IsErrorType(nilSession.expect(SessionCreated), ValidationError))

	s := &CheckoutSession{State: SessionInitialized}
	require.NoError(t, s.expect(SessionInitialized))
	require.True(t, IsErrorType(s.expect(SessionCreated), ProtocolError))
	assert.Equal(t, SessionFailed, s.State)
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	client := NewClient(newTestKeys(t).profile(), withClock(fixedClock))

	s, err := client.NewSession(CheckoutRequest{
		Amount:      decimal.NewFromInt(300),
		CallbackURL: "https://shop.example/cb",
		Token:       "ignored for authorize",
	}, VariantAuthorize)
	require.NoError(t, err)
	assert.Equal(t, SessionCreated, s.State)
	assert.Equal(t, PurposeTokenGeneration, s.Purpose)
	assert.True(t, s.Amount.IsZero())
	assert.Empty(t, s.Token)
	assert.Regexp(t, `^Ord_2024030510\d{4}$`, s.OrderID)
	assert.Equal(t, map[string]any{"tokenization": true}, s.AdditionalInfo)

	other, err := client.NewSession(CheckoutRequest{CallbackURL: "https://shop.example/cb"}, VariantRegular)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)
}
