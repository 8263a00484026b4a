package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP gateway to the ledger's transfer endpoint
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client posting to baseURL + "/transfer"
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type tokensJSON struct {
	E8s uint64 `json:"e8s"`
}

type timestampJSON struct {
	TimestampNanos uint64 `json:"timestamp_nanos"`
}

type transferRequest struct {
	To             string         `json:"to"`
	Amount         tokensJSON     `json:"amount"`
	Fee            tokensJSON     `json:"fee"`
	Memo           uint64         `json:"memo"`
	FromSubaccount *string        `json:"from_subaccount"`
	CreatedAtTime  *timestampJSON `json:"created_at_time"`
}

type transferResponse struct {
	Ok  *uint64                    `json:"Ok"`
	Err map[string]json.RawMessage `json:"Err"`
}

// Transfer submits one transfer and classifies the outcome
func (c *Client) Transfer(ctx context.Context, args TransferArgs) (uint64, error) {
	req := transferRequest{
		To:     args.To.String(),
		Amount: tokensJSON{E8s: args.Amount},
		Fee:    tokensJSON{E8s: args.Fee},
		Memo:   args.Memo,
	}
	if args.FromSubaccount != nil {
		sub := hex.EncodeToString(args.FromSubaccount[:])
		req.FromSubaccount = &sub
	}
	if args.CreatedAtTime != nil {
		req.CreatedAtTime = &timestampJSON{TimestampNanos: uint64(args.CreatedAtTime.UnixNano())}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode transfer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return 0, &CallError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, &CallError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, &CallError{Code: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &CallError{Code: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out transferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, &CallError{Code: resp.StatusCode, Message: "malformed ledger response: " + err.Error()}
	}
	switch {
	case out.Ok != nil:
		return *out.Ok, nil
	case len(out.Err) > 0:
		rejection := decodeRejection(out.Err)
		logrus.WithFields(logrus.Fields{
			"to":     req.To,
			"amount": args.Amount,
			"kind":   rejection.Kind,
		}).Warn("Ledger rejected transfer")
		return 0, rejection
	default:
		return 0, &CallError{Code: resp.StatusCode, Message: "empty ledger response"}
	}
}

func decodeRejection(variants map[string]json.RawMessage) *RejectedError {
	for kind, payload := range variants {
		switch kind {
		case "BadFee":
			var v struct {
				ExpectedFee tokensJSON `json:"expected_fee"`
			}
			_ = json.Unmarshal(payload, &v)
			return BadFee(v.ExpectedFee.E8s)
		case "InsufficientFunds":
			var v struct {
				Balance tokensJSON `json:"balance"`
			}
			_ = json.Unmarshal(payload, &v)
			return InsufficientFunds(v.Balance.E8s)
		case "TxTooOld":
			var v struct {
				AllowedWindowNanos uint64 `json:"allowed_window_nanos"`
			}
			_ = json.Unmarshal(payload, &v)
			return TxTooOld(time.Duration(v.AllowedWindowNanos))
		case "TxCreatedInFuture":
			return TxCreatedInFuture()
		case "TxDuplicate":
			var v struct {
				DuplicateOf uint64 `json:"duplicate_of"`
			}
			_ = json.Unmarshal(payload, &v)
			return TxDuplicate(v.DuplicateOf)
		default:
			return &RejectedError{Kind: kind, Message: kind + ": " + string(payload)}
		}
	}
	return &RejectedError{Kind: "Unknown", Message: "unknown rejection"}
}
