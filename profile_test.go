package nagad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchantProfileValidate(t *testing.T) {
	t.Parallel()
	keys := newTestKeys(t)

	tests := map[string]struct {
		mutate func(*MerchantProfile)
		want   ErrorType
		param  string
	}{
		"missing merchant id": {mutate: func(p *MerchantProfile) { p.MerchantID = "" }, want: ValidationError, param: "merchantId"},
		"missing public key":  {mutate: func(p *MerchantProfile) { p.PublicKey = "" }, want: ValidationError, param: "publicKey"},
		"account not numeric": {mutate: func(p *MerchantProfile) { p.AccountNumber = "017-11" }, want: ValidationError, param: "accountNumber"},
		"public key garbage":  {mutate: func(p *MerchantProfile) { p.PublicKey = "not a key" }, want: KeyFormatError},
		"private key garbage": {mutate: func(p *MerchantProfile) { p.PrivateKey = "bm90IGEga2V5" }, want: KeyFormatError},
		"short symmetric key": {mutate: func(p *MerchantProfile) { p.SymmetricKeyHex = "0011" }, want: InvalidKeyMaterialError},
		"iv without key":      {mutate: func(p *MerchantProfile) { p.SymmetricKeyHex = "" }, want: InvalidKeyMaterialError},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			profile := keys.profile()
			tt.mutate(&profile)
			var typed *Error
			require.ErrorAs(t, profile.Validate(), &typed)
			assert.Equal(t, tt.want, typed.Type, typed.Error())
			if tt.param != "" {
				require.NotNil(t, typed.Param)
				assert.Equal(t, tt.param, *typed.Param)
			}
		})
	}
}

func TestMerchantProfileValidateAcceptsOptionalKeyMaterial(t *testing.T) {
	t.Parallel()
	keys := newTestKeys(t)

	require.NoError(t, keys.profile().Validate())

	profile := keys.profile()
	profile.SymmetricKeyHex = ""
	profile.IVHex = ""
	profile.AccountNumber = ""
	require.NoError(t, profile.Validate())
}

func TestMerchantProfileStringRedactsKeys(t *testing.T) {
	t.Parallel()
	keys := newTestKeys(t)

	got := keys.profile().String()
	assert.Contains(t, got, testMerchantID)
	assert.NotContains(t, got, keys.merchant.Private)
	assert.NotContains(t, got, "PRIVATE")
	assert.NotContains(t, got, keys.profile().SymmetricKeyHex)
}
