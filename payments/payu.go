// Package payments builds and verifies PayU hosted-checkout transactions.
package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Request is the form the browser posts to the PayU checkout page.
type Request struct {
	Action      string `json:"action"`
	Key         string `json:"key"`
	TxnID       string `json:"txnid"`
	Amount      string `json:"amount"`
	ProductInfo string `json:"productinfo"`
	FirstName   string `json:"firstname"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	SURL        string `json:"surl"`
	FURL        string `json:"furl"`
	UDF1        string `json:"udf1"`
	UDF2        string `json:"udf2"`
	UDF3        string `json:"udf3"`
	UDF4        string `json:"udf4"`
	UDF5        string `json:"udf5"`
	Hash        string `json:"hash"`
}

// Response is the form PayU posts back to surl or furl.
type Response struct {
	Status            string
	TxnID             string
	Amount            string
	ProductInfo       string
	FirstName         string
	Email             string
	MihPayID          string
	AdditionalCharges string
	Key               string
	UDF               [5]string
	Hash              string
}

type PayU struct {
	key         string
	salt        string
	baseURL     string
	callbackURL string
}

// NewPayU returns a client for one merchant. PayU posts the outcome of every
// checkout, successful or not, to callbackURL.
func NewPayU(key, salt, baseURL, callbackURL string) *PayU {
	return &PayU{
		key:         key,
		salt:        salt,
		baseURL:     baseURL,
		callbackURL: callbackURL,
	}
}

// NewRequest returns the signed checkout form. udf carries merchant fields
// echoed back in the response.
func (p *PayU) NewRequest(txnID, amount, productInfo, firstName, email string, udf [5]string) Request {
	r := Request{
		Action:      p.baseURL,
		Key:         p.key,
		TxnID:       txnID,
		Amount:      amount,
		ProductInfo: productInfo,
		FirstName:   firstName,
		Email:       email,
		SURL:        p.callbackURL,
		FURL:        p.callbackURL,
		UDF1:        udf[0],
		UDF2:        udf[1],
		UDF3:        udf[2],
		UDF4:        udf[3],
		UDF5:        udf[4],
	}
	r.Hash = p.requestHash(r)
	return r
}

func (p *PayU) requestHash(r Request) string {
	fields := []string{
		p.key, r.TxnID, r.Amount, r.ProductInfo, r.FirstName, r.Email,
		r.UDF1, r.UDF2, r.UDF3, r.UDF4, r.UDF5,
		"", "", "", "", "",
		p.salt,
	}
	return digest(fields)
}

// ResponseHash computes the reverse hash PayU signs its callback with.
func (p *PayU) ResponseHash(r Response) string {
	fields := []string{
		p.salt, r.Status,
		"", "", "", "", "",
		r.UDF[4], r.UDF[3], r.UDF[2], r.UDF[1], r.UDF[0],
		r.Email, r.FirstName, r.ProductInfo, r.Amount, r.TxnID, p.key,
	}
	if r.AdditionalCharges != "" {
		fields = append([]string{r.AdditionalCharges}, fields...)
	}
	return digest(fields)
}

// Verify reports whether the callback was signed with this merchant's salt
// and addressed to this merchant's key.
func (p *PayU) Verify(r Response) bool {
	if r.Key != "" && r.Key != p.key {
		return false
	}
	expected := p.ResponseHash(r)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(r.Hash))) == 1
}

// ParseResponse reads the callback form fields.
func ParseResponse(form url.Values) Response {
	return Response{
		Status:            form.Get("status"),
		TxnID:             form.Get("txnid"),
		Amount:            form.Get("amount"),
		ProductInfo:       form.Get("productinfo"),
		FirstName:         form.Get("firstname"),
		Email:             form.Get("email"),
		MihPayID:          form.Get("mihpayid"),
		AdditionalCharges: form.Get("additionalCharges"),
		Key:               form.Get("key"),
		UDF: [5]string{
			form.Get("udf1"), form.Get("udf2"), form.Get("udf3"), form.Get("udf4"), form.Get("udf5"),
		},
		Hash: form.Get("hash"),
	}
}

func digest(fields []string) string {
	sum := sha512.Sum512([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}
