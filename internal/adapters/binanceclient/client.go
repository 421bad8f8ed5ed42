package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	defaultSpecTTL    = 15 * time.Minute
	defaultMaxRetries = 3
	defaultQuoteAsset = "USDT"
)

// Client implements ports.MarketData using the go-binance futures API.
// Asset specs are served from a TTL cache refreshed from exchangeInfo.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	specTTL       time.Duration
	maxRetries    int
	quoteAsset    string
	retryMin      time.Duration
	retryMax      time.Duration
	now           func() time.Time

	mu        sync.RWMutex
	specs     map[string]domain.AssetSpec // Keyed by venue symbol
	fetchedAt time.Time

	refreshMu sync.Mutex // Serializes exchangeInfo downloads
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides the production/testnet URL when set
	Logger     ports.Logger
	SpecTTL    time.Duration // How long exchangeInfo stays fresh
	MaxRetries int           // Attempts for idempotent metadata reads
	QuoteAsset string        // Appended to bare symbols, e.g. ETH -> ETHUSDT
	RetryMin   time.Duration
	RetryMax   time.Duration
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client: %w", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "Binance API keys not set, using public endpoints only")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance market data client configured", ports.Fields{"baseURL": client.BaseURL})

	ttl := cfg.SpecTTL
	if ttl <= 0 {
		ttl = defaultSpecTTL
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	quote := strings.ToUpper(strings.TrimSpace(cfg.QuoteAsset))
	if quote == "" {
		quote = defaultQuoteAsset
	}
	retryMin := cfg.RetryMin
	if retryMin <= 0 {
		retryMin = 200 * time.Millisecond
	}
	retryMax := cfg.RetryMax
	if retryMax <= 0 {
		retryMax = 5 * time.Second
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		specTTL:       ttl,
		maxRetries:    retries,
		quoteAsset:    quote,
		retryMin:      retryMin,
		retryMax:      retryMax,
		now:           time.Now,
		specs:         make(map[string]domain.AssetSpec),
	}, nil
}

// handleError translates err and logs it at ERROR. Calls inside withRetry use
// translateError instead, so one failure is logged once.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), errorFields(err, operation))
	return translateError(err, operation)
}

func errorFields(err error, operation string) ports.Fields {
	fields := ports.Fields{"operation": operation, "originalError": err.Error()}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}
	return fields
}

// translateError maps common Binance API errors onto the ports errors.
func translateError(err error, operation string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1000, -1001, -1007: // Unknown, disconnected, backend timeout
			mappedErr = ports.ErrExchangeUnavailable
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Signature or API key problems
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1121: // Parameter errors, invalid symbol
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, etc.)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		return fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}
}

// retryable reports whether an idempotent read may be attempted again.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrAuthenticationFailed):
		return false
	default:
		return true
	}
}

// withRetry runs fn until it succeeds, fails permanently or runs out of attempts.
// Only read-only metadata calls go through here; orders are never retried.
// Intermediate failures are logged at WARN, the final one at ERROR.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{Min: c.retryMin, Max: c.retryMax, Factor: 2, Jitter: true}

	var err error
	attempt := 1
	for ; attempt <= c.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == c.maxRetries {
			break
		}

		wait := b.Duration()
		c.logger.Warn(ctx, "Retrying metadata request", ports.Fields{
			"operation": op,
			"attempt":   attempt,
			"wait":      wait.String(),
			"error":     err.Error(),
		})
		select {
		case <-ctx.Done():
			return c.handleError(ctx, ctx.Err(), op)
		case <-time.After(wait):
		}
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", op), ports.Fields{"operation": op, "attempts": attempt})
	return err
}

// venueSymbol maps a bare coin (ETH) to the futures symbol (ETHUSDT).
func (c *Client) venueSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, c.quoteAsset) {
		return s
	}
	return s + c.quoteAsset
}

// GetAssetSpec returns the tick size and size precision for symbol.
// Returns nil, nil when the venue lists no such symbol.
func (c *Client) GetAssetSpec(ctx context.Context, symbol string) (*domain.AssetSpec, error) {
	venue := c.venueSymbol(symbol)

	if spec, ok, fresh := c.cached(venue); fresh {
		if !ok {
			return nil, nil
		}
		spec.Symbol = symbol
		return &spec, nil
	}

	if err := c.refreshSpecs(ctx); err != nil {
		// Serve a stale entry rather than nothing.
		c.mu.RLock()
		spec, ok := c.specs[venue]
		c.mu.RUnlock()
		if ok {
			c.logger.Warn(ctx, "Serving stale asset spec after refresh failure", ports.Fields{"symbol": venue})
			spec.Symbol = symbol
			return &spec, nil
		}
		return nil, err
	}

	spec, ok, _ := c.cached(venue)
	if !ok {
		c.logger.Warn(ctx, "Symbol not listed in exchange info", ports.Fields{"symbol": venue})
		return nil, nil
	}
	spec.Symbol = symbol
	return &spec, nil
}

// cached returns the entry for venue and whether the cache is fresh.
func (c *Client) cached(venue string) (domain.AssetSpec, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.specTTL
	spec, ok := c.specs[venue]
	return spec, ok, fresh
}

func (c *Client) refreshSpecs(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.specTTL
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	op := "GetExchangeInfo"
	var info *futures.ExchangeInfo
	err := c.withRetry(ctx, op, func() error {
		res, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return translateError(err, op)
		}
		info = res
		return nil
	})
	if err != nil {
		return err
	}

	specs := make(map[string]domain.AssetSpec, len(info.Symbols))
	for i := range info.Symbols {
		sym := &info.Symbols[i]
		spec := domain.AssetSpec{Symbol: sym.Symbol, SizeDecimals: sym.QuantityPrecision}
		if pf := sym.PriceFilter(); pf != nil {
			spec.TickSize = pf.TickSize
		}
		specs[sym.Symbol] = spec
	}

	c.mu.Lock()
	c.specs = specs
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.logger.Info(ctx, "Asset specs refreshed", ports.Fields{"symbols": len(specs)})
	return nil
}

// GetReferencePrice returns the current mark price for symbol.
func (c *Client) GetReferencePrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetMarkPrice"
	venue := c.venueSymbol(symbol)

	var price float64
	err := c.withRetry(ctx, op, func() error {
		tickers, err := c.futuresClient.NewPremiumIndexService().Symbol(venue).Do(ctx)
		if err != nil {
			return translateError(err, op)
		}
		if len(tickers) == 0 {
			return fmt.Errorf("%s: no price data returned for symbol %s: %w", op, venue, ports.ErrPriceUnavailable)
		}

		p, err := strconv.ParseFloat(tickers[0].MarkPrice, 64)
		if err != nil {
			return translateError(fmt.Errorf("could not parse price '%s': %w", tickers[0].MarkPrice, err), op)
		}
		price = p
		return nil
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}
