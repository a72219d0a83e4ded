package security

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// OriginAllowlist CORS 白名单，支持配置热更新
type OriginAllowlist struct {
	mu  sync.RWMutex
	set map[string]bool
}

func NewOriginAllowlist(origins []string) *OriginAllowlist {
	a := &OriginAllowlist{}
	a.Update(origins)
	return a
}

func (a *OriginAllowlist) Update(origins []string) {
	set := make(map[string]bool, len(origins))
	for _, o := range origins {
		set[o] = true
	}
	a.mu.Lock()
	a.set = set
	a.mu.Unlock()
}

func (a *OriginAllowlist) allowed(origin string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.set[origin]
}

// Middleware 仅允许白名单中的Origin，支持Credentials
func (a *OriginAllowlist) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && a.allowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Secure 中间件
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止MIME嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		// 防止点击劫持
		c.Header("X-Frame-Options", "DENY")
		// XSS保护
		c.Header("X-XSS-Protection", "1; mode=block")
		// 测验题目和成绩都是按人投影的内容，禁止中间层缓存
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Header("Cache-Control", "no-store")
		}
		// HSTS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		c.Next()
	}
}

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter 按IP限流，自动清理过期条目，配额支持配置热更新。
// 健康检查和指标抓取不计入配额。
type IPRateLimiter struct {
	mu          sync.Mutex
	store       map[string]*visitor
	maxRequests int
	window      time.Duration
}

func NewIPRateLimiter(maxRequests int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{}
	l.Update(maxRequests, window)
	go l.cleanupLoop()
	return l
}

// Update 调整配额；已有访客的限流器按新配额重建
func (l *IPRateLimiter) Update(maxRequests int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxRequests = maxRequests
	l.window = window
	l.store = make(map[string]*visitor)
}

func (l *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		expiry := l.window * 3
		if expiry < time.Minute {
			expiry = time.Minute
		}
		for ip, v := range l.store {
			if time.Since(v.lastSeen) > expiry {
				delete(l.store, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api/health" || path == "/metrics" {
			c.Next()
			return
		}

		key := c.ClientIP()

		l.mu.Lock()
		v, exists := l.store[key]
		if !exists {
			v = &visitor{
				limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.maxRequests)), l.maxRequests),
			}
			l.store[key] = v
		}
		v.lastSeen = time.Now()
		limiter := v.limiter
		l.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
