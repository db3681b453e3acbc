package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int    `json:"amount"`
	Status  string `json:"status"`
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/razorpay", "Webhook URL")
	secret := flag.String("secret", os.Getenv("RZP_WEBHOOK_SECRET"), "Webhook secret")
	eventType := flag.String("type", "payment.captured", "Event type (payment.captured, payment.failed)")
	orderID := flag.String("order-id", "order_"+randomHex(8), "Razorpay order ID")
	paymentID := flag.String("payment-id", "pay_"+randomHex(8), "Razorpay payment ID")
	amount := flag.Int("amount", 50000, "Amount in paise")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and RZP_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	var payload webhookPayload
	payload.Event = *eventType
	payload.Payload.Payment.Entity = paymentEntity{
		ID:      *paymentID,
		OrderID: *orderID,
		Amount:  *amount,
		Status:  "captured",
	}
	if *eventType == "payment.failed" {
		payload.Payload.Payment.Entity.Status = "failed"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sig := computeSig([]byte(*secret), body)

	fmt.Printf("X-Razorpay-Signature: %s\n", sig)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Razorpay-Signature", sig)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %d %s\n", resp.StatusCode, string(respBody))
}

func computeSig(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
