package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vietddude/walletview/internal/core/domain"
)

// DefaultHistoryPageSize is the history page size when none is configured.
const DefaultHistoryPageSize = 5

// ExplorerMediaType is the JSON:API media type the explorer speaks.
const ExplorerMediaType = "application/vnd.api+json"

// ExplorerHeaders are sent with every explorer request.
var ExplorerHeaders = map[string]string{
	"Accept":       ExplorerMediaType,
	"Content-Type": ExplorerMediaType,
}

// HistoryFetcher pages through an address's transactions on the explorer.
type HistoryFetcher struct {
	explorer *Backend
}

// NewHistoryFetcher wraps an explorer backend. The backend should send
// ExplorerHeaders.
func NewHistoryFetcher(explorer *Backend) *HistoryFetcher {
	return &HistoryFetcher{explorer: explorer}
}

type historyResponse struct {
	Data []domain.TransactionHistory `json:"data"`
}

// HistoryPath is the explorer path for one page, newest first.
func HistoryPath(addr domain.Address, page, pageSize int) string {
	return fmt.Sprintf("address_transactions/%s?page=%d&page_size=%d&sort=time.desc",
		url.PathEscape(string(addr)), page, pageSize)
}

// FetchPage loads one page. The explorer is picked by the address prefix,
// not by the active session.
func (f *HistoryFetcher) FetchPage(ctx context.Context, q AddressQuery, page, pageSize int) ([]domain.TransactionHistory, error) {
	network := domain.NetworkOfAddress(q.Address)

	var resp historyResponse
	if err := f.explorer.Get(ctx, network, HistoryPath(q.Address, page, pageSize), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []domain.TransactionHistory{}, nil
	}
	return resp.Data, nil
}
