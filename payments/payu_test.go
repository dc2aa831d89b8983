package payments

import (
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func testPayU() *PayU {
	return NewPayU("gtKFFx", "eCwWELxi", "https://test.payu.in/_payment",
		"https://api.kavyalok.in/api/payments/callback")
}

func TestRequestHash(t *testing.T) {
	p := testPayU()
	r := p.NewRequest("txn1", "199.00", "Monsoon Verses", "Asha", "asha@example.com",
		[5]string{"comp1", "", "", "", ""})

	want := sha("gtKFFx|txn1|199.00|Monsoon Verses|Asha|asha@example.com|comp1||||||||||eCwWELxi")
	assert.Equal(t, want, r.Hash)
	assert.Equal(t, "https://test.payu.in/_payment", r.Action)
	assert.Equal(t, "comp1", r.UDF1)
}

func TestResponseHash(t *testing.T) {
	p := testPayU()
	resp := Response{
		Status:      StatusSuccess,
		TxnID:       "txn1",
		Amount:      "199.00",
		ProductInfo: "Monsoon Verses",
		FirstName:   "Asha",
		Email:       "asha@example.com",
		UDF:         [5]string{"comp1"},
	}

	want := sha("eCwWELxi|success||||||||||comp1|asha@example.com|Asha|Monsoon Verses|199.00|txn1|gtKFFx")
	assert.Equal(t, want, p.ResponseHash(resp))

	resp.AdditionalCharges = "4.00"
	assert.Equal(t, sha("4.00|eCwWELxi|success||||||||||comp1|asha@example.com|Asha|Monsoon Verses|199.00|txn1|gtKFFx"),
		p.ResponseHash(resp))
}

func TestVerify(t *testing.T) {
	p := testPayU()
	form := url.Values{
		"status":      {"success"},
		"txnid":       {"txn1"},
		"amount":      {"199.00"},
		"productinfo": {"Monsoon Verses"},
		"firstname":   {"Asha"},
		"email":       {"asha@example.com"},
		"udf1":        {"comp1"},
		"mihpayid":    {"403993715521"},
		"key":         {"gtKFFx"},
	}
	resp := ParseResponse(form)
	resp.Hash = strings.ToUpper(p.ResponseHash(resp))
	require.True(t, p.Verify(resp))

	tampered := resp
	tampered.Amount = "1.00"
	assert.False(t, p.Verify(tampered))

	otherMerchant := resp
	otherMerchant.Key = "someone"
	assert.False(t, p.Verify(otherMerchant))

	unsigned := resp
	unsigned.Hash = ""
	assert.False(t, p.Verify(unsigned))
}

func TestParseResponse(t *testing.T) {
	resp := ParseResponse(url.Values{
		"status":   {"failure"},
		"txnid":    {"txn9"},
		"udf1":     {"c"},
		"udf5":     {"e"},
		"mihpayid": {"m"},
	})
	assert.Equal(t, "failure", resp.Status)
	assert.Equal(t, "txn9", resp.TxnID)
	assert.Equal(t, [5]string{"c", "", "", "", "e"}, resp.UDF)
	assert.Equal(t, "m", resp.MihPayID)
}
