package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/shared"
)

// KeyValueStore is the storage contract the board layer is written against.
// Get reports absence through the bool rather than an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// KVService selects the key-value backend at startup: the REST command
// endpoint when KV_REST_API_URL/KV_REST_API_TOKEN are set (hosted
// deployments), otherwise the Redis connection when one is configured.
// With neither, board endpoints fail with a configuration error.
type KVService struct {
	appContext.DefaultService

	restURL   string
	restToken string

	store KeyValueStore
}

const KV_SVC = "kv_svc"

func (svc KVService) Id() string {
	return KV_SVC
}

func (svc *KVService) Configure(ctx *appContext.Context) error {
	svc.restURL = os.Getenv("KV_REST_API_URL")
	svc.restToken = os.Getenv("KV_REST_API_TOKEN")
	return svc.DefaultService.Configure(ctx)
}

func (svc *KVService) Start() error {
	if svc.restURL != "" && svc.restToken != "" {
		svc.store = NewRestKV(svc.restURL, svc.restToken)
		log.WithField("backend", "rest").Info("Key-value store configured")
		return nil
	}

	redisSvc := svc.Service(REDIS_SVC).(*RedisService)
	if redisSvc.Configured() {
		svc.store = redisSvc
		log.WithField("backend", "redis").Info("Key-value store configured")
		return nil
	}

	log.Warn("No key-value backend configured, board endpoints will be unavailable")
	return nil
}

// Store returns the selected backend, or nil when none is configured.
func (svc *KVService) Store() KeyValueStore {
	return svc.store
}

// RestKV speaks the Redis-over-REST command dialect: each command is a JSON
// array POSTed to the endpoint root with bearer auth, and the reply wraps
// the result in {"result": ...}.
type RestKV struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewRestKV(baseURL, token string) *RestKV {
	return &RestKV{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (kv *RestKV) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := kv.command(ctx, []string{"GET", key})
	if err != nil {
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}
	return *result, true, nil
}

func (kv *RestKV) Set(ctx context.Context, key, value string) error {
	_, err := kv.command(ctx, []string{"SET", key, value})
	return err
}

func (kv *RestKV) command(ctx context.Context, cmd []string) (*string, error) {
	body, err := sonic.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, kv.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+kv.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := kv.httpClient.Do(req)
	if err != nil {
		return nil, shared.NewUpstreamError(0, err.Error(), "Key-value store unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.NewUpstreamError(0, err.Error(), "Key-value store read failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).WithField("command", cmd[0]).
			Error("Key-value command failed")
		return nil, shared.NewUpstreamError(http.StatusBadGateway, string(respBody), "Key-value store error")
	}

	var parsed struct {
		Result *string `json:"result"`
	}
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return nil, shared.NewUpstreamError(http.StatusBadGateway, err.Error(), "Key-value store returned malformed response")
	}

	return parsed.Result, nil
}
