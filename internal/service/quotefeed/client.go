package quotefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ImpVol/internal/domain/models"
	drepo "ImpVol/internal/domain/repository"
	"ImpVol/pkg/logger"
)

// Client implements QuoteStream over a websocket quote feed.
type Client struct {
	apiKey         string
	url            string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(apiKey, wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.QuoteStream {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		apiKey:         apiKey,
		url:            wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log.With(logger.String("component", "quotefeed")),
	}
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("quotefeed url: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("token", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Connect establishes the websocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u, err := c.dialURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quotefeed connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("connected", logger.String("url", c.url))
	return nil
}

type subscribeMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Subscribe subscribes to the configured underlyings.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return errors.New("quotefeed not connected")
	}
	for _, s := range c.symbols {
		if err := c.conn.WriteJSON(subscribeMsg{Type: "subscribe", Symbol: s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.log.Debug("subscribed", logger.String("symbol", s))
	}
	return nil
}

type feedMessage struct {
	Type string               `json:"type"`
	Data []models.OptionQuote `json:"data"`
}

// DecodeFrame returns the quotes carried by a frame. Frames of any other
// type, and frames that do not parse, yield nothing.
func DecodeFrame(b []byte) []*models.OptionQuote {
	var m feedMessage
	if err := json.Unmarshal(b, &m); err != nil || m.Type != "quote" {
		return nil
	}
	out := make([]*models.OptionQuote, 0, len(m.Data))
	for i := range m.Data {
		out = append(out, &m.Data[i])
	}
	return out
}

// Read streams quotes and errors. The quote channel drops on backpressure.
func (c *Client) Read(ctx context.Context) (<-chan *models.OptionQuote, <-chan error) {
	quotes := make(chan *models.OptionQuote, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(quotes)
		defer close(errs)
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			errs <- errors.New("quotefeed conn nil")
			return
		}
		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("quotefeed read: %w", err)
				return
			}
			for _, q := range DecodeFrame(b) {
				select {
				case quotes <- q:
				default:
					c.log.Warn("quote dropped on backpressure", logger.String("symbol", q.Symbol))
				}
			}
		}
	}()

	return quotes, errs
}

// Reconnect closes the connection, waits and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
