package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func sign(secret string, data []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func equal(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}

// SignPayment computes the checkout signature for an order and payment pair
func SignPayment(orderID, paymentID, secret string) string {
	return sign(secret, []byte(orderID+"|"+paymentID))
}

// VerifyPaymentSignature checks a checkout signature in constant time
func VerifyPaymentSignature(orderID, paymentID, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return equal(SignPayment(orderID, paymentID, secret), signature)
}

// SignWebhook computes the signature of a raw webhook body
func SignWebhook(body []byte, secret string) string {
	return sign(secret, body)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header of a webhook
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return equal(SignWebhook(body, secret), signature)
}
