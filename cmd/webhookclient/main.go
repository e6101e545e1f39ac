// Command webhookclient posts a signed LINE audio-message webhook to a
// running service and optionally probes its gRPC health endpoint.
package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type audioMessage struct {
	Type            string          `json:"type"`
	ID              string          `json:"id"`
	Duration        int64           `json:"duration"`
	ContentProvider contentProvider `json:"contentProvider"`
}

type contentProvider struct {
	Type string `json:"type"`
}

type source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type deliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

type messageEvent struct {
	Type            string          `json:"type"`
	Message         audioMessage    `json:"message"`
	Timestamp       int64           `json:"timestamp"`
	Source          source          `json:"source"`
	ReplyToken      string          `json:"replyToken"`
	Mode            string          `json:"mode"`
	WebhookEventID  string          `json:"webhookEventId"`
	DeliveryContext deliveryContext `json:"deliveryContext"`
}

type callbackRequest struct {
	Destination string         `json:"destination"`
	Events      []messageEvent `json:"events"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/callback", "webhook endpoint")
	secret := flag.String("secret", os.Getenv("LINE_CHANNEL_SECRET"), "channel secret used to sign the body")
	messageID := flag.String("message-id", "", "audio message id (random if empty)")
	replyToken := flag.String("reply-token", "", "reply token (random if empty)")
	grpcAddr := flag.String("grpc", "", "gRPC address to health-check, e.g. localhost:50051")
	flag.Parse()

	if *secret == "" {
		log.Fatal("channel secret is required (-secret or LINE_CHANNEL_SECRET)")
	}
	if *messageID == "" {
		*messageID = uuid.NewString()
	}
	if *replyToken == "" {
		*replyToken = uuid.NewString()
	}

	if *grpcAddr != "" {
		checkHealth(*grpcAddr)
	}

	body, err := json.Marshal(callbackRequest{
		Destination: "Udeadbeefdeadbeefdeadbeefdeadbeef",
		Events: []messageEvent{{
			Type: "message",
			Message: audioMessage{
				Type:            "audio",
				ID:              *messageID,
				Duration:        3000,
				ContentProvider: contentProvider{Type: "line"},
			},
			Timestamp:      time.Now().UnixMilli(),
			Source:         source{Type: "user", UserID: "U4af4980629deadbeefdeadbeefdeadbe"},
			ReplyToken:     *replyToken,
			Mode:           "active",
			WebhookEventID: uuid.NewString(),
		}},
	})
	if err != nil {
		log.Fatalf("failed to encode webhook: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Line-Signature", sign(*secret, body))

	log.Printf("Posting audio webhook: messageId=%s replyToken=%s", *messageID, *replyToken)

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	log.Printf("Received response: status=%d body=%q", resp.StatusCode, respBody)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func checkHealth(addr string) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		log.Fatalf("health check failed: %v", err)
	}
	log.Printf("gRPC health: %s", resp.GetStatus())
}
