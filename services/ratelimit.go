package services

import (
	"math/rand"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/model"
	"github.com/press141-netizen/reflex/shared"
)

const (
	// Capacity bound of the limiter table. Cleanup trims back below this
	// regardless of how many distinct identifiers show up.
	defaultLimiterCapacity = 1000

	// Fraction of Check calls that run the opportunistic sweep. Keeps
	// per-request cost flat without a background timer.
	cleanupProbability = 0.1
)

// RateLimiter is a fixed-window request counter. One table per process:
// under horizontal scaling each instance counts independently, so the limit
// is approximate, not a global guarantee.
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*model.RateLimitEntry
	capacity int
	randFn   func() float64
	nowFn    func() time.Time
}

func NewRateLimiter(capacity int) *RateLimiter {
	if capacity <= 0 {
		capacity = defaultLimiterCapacity
	}
	return &RateLimiter{
		entries:  make(map[string]*model.RateLimitEntry),
		capacity: capacity,
		randFn:   rand.Float64,
		nowFn:    time.Now,
	}
}

// Check counts one request for the identifier against the given policy and
// reports whether it is allowed. The count increments before the comparison,
// so the (max+1)th call inside a window is the first limited one.
func (rl *RateLimiter) Check(identifier string, maxRequests int, window time.Duration) *dto.RateLimitInfo {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()

	if rl.randFn() < cleanupProbability {
		rl.cleanupLocked(now)
	}

	entry, ok := rl.entries[identifier]
	if !ok || entry.Expired(now) {
		entry = &model.RateLimitEntry{
			Identifier:  identifier,
			WindowStart: now,
			ResetTime:   now.Add(window),
		}
		rl.entries[identifier] = entry
	}

	entry.Count++

	if entry.Count > maxRequests {
		retryAfter := int((entry.ResetTime.Sub(now) + time.Second - 1) / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}
		return &dto.RateLimitInfo{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetTime:  entry.ResetTime,
			RetryAfter: retryAfter,
		}
	}

	return &dto.RateLimitInfo{
		Allowed:   true,
		Limit:     maxRequests,
		Remaining: maxRequests - entry.Count,
		ResetTime: entry.ResetTime,
	}
}

// Remaining is the read-only advisory counterpart of Check; it never counts
// a request.
func (rl *RateLimiter) Remaining(identifier string, maxRequests int) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[identifier]
	if !ok || entry.Expired(rl.nowFn()) {
		return maxRequests
	}

	remaining := maxRequests - entry.Count
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Cleanup drops expired windows and, if the table is still over capacity,
// the entries closest to expiry.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cleanupLocked(rl.nowFn())
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range rl.entries {
		if entry.Expired(now) {
			delete(rl.entries, key)
		}
	}

	if len(rl.entries) <= rl.capacity {
		return
	}

	keys := make([]string, 0, len(rl.entries))
	for key := range rl.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return rl.entries[keys[i]].ResetTime.Before(rl.entries[keys[j]].ResetTime)
	})

	for _, key := range keys[:len(rl.entries)-rl.capacity] {
		delete(rl.entries, key)
	}
}

// RateLimitService owns the limiter table and exposes per-policy fiber
// middleware. The table is a constructed instance, not a package global, so
// tests can build isolated limiters.
type RateLimitService struct {
	appContext.DefaultService

	limiter  *RateLimiter
	policies map[string]*model.RateLimitPolicy
	mutex    sync.RWMutex
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.limiter = NewRateLimiter(defaultLimiterCapacity)
	svc.initDefaultPolicies()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	return nil
}

func (svc *RateLimitService) initDefaultPolicies() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.policies = map[string]*model.RateLimitPolicy{
		"analyze": {
			Name:        "analyze",
			MaxRequests: 5,
			WindowSize:  time.Hour,
			Description: "AI analysis rate limit per IP",
		},
		"api_general": {
			Name:        "api_general",
			MaxRequests: 120,
			WindowSize:  time.Minute,
			Description: "General API rate limit per IP",
		},
	}
}

func (svc *RateLimitService) Limiter() *RateLimiter {
	return svc.limiter
}

// Limit returns a middleware enforcing the named policy keyed by client IP.
// Unknown policies allow everything.
func (svc *RateLimitService) Limit(policy string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		svc.mutex.RLock()
		p, exists := svc.policies[policy]
		svc.mutex.RUnlock()

		if !exists {
			return c.Next()
		}

		identifier := policy + ":" + ClientIdentifier(c)
		info := svc.limiter.Check(identifier, p.MaxRequests, p.WindowSize)

		c.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Set("X-RateLimit-Reset", info.ResetTime.UTC().Format(time.RFC3339))

		if !info.Allowed {
			log.WithField("policy", policy).WithField("identifier", identifier).
				Warn("Rate limit exceeded")
			RecordRateLimitRejection(policy)

			c.Set("Retry-After", strconv.Itoa(info.RetryAfter))
			return shared.NewRateLimitError(info.RetryAfter, "Too many requests")
		}

		return c.Next()
	}
}

// ClientIdentifier derives the limiter key for a request: first entry of
// X-Forwarded-For, then X-Real-IP, then the transport address.
func ClientIdentifier(c *fiber.Ctx) string {
	return identifierFrom(c.Get("X-Forwarded-For"), c.Get("X-Real-IP"), c.Context().RemoteAddr().String())
}

func identifierFrom(forwardedFor, realIP, remoteAddr string) string {
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if realIP != "" {
		return realIP
	}

	if remoteAddr != "" {
		ip, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			return remoteAddr
		}
		return ip
	}

	return "unknown"
}
