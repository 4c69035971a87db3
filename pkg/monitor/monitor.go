// Package monitor maintains the Geyser subscription for the leader wallets
// and drives every received transaction through dedup, decode, journal, and
// mirror execution.
package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	yellowstone "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/solana-zh/solmirror/pkg"
	"github.com/solana-zh/solmirror/pkg/journal"
	"github.com/solana-zh/solmirror/pkg/parser"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// reconnectDelay between subscription attempts. Retries are unbounded.
const reconnectDelay = 5 * time.Second

// TradeExecutor mirrors one leader trade and reports the attempt.
type TradeExecutor interface {
	ExecuteTrade(ctx context.Context, trade *pkg.Trade) *pkg.ExecutedTrade
}

// TradeJournal records observed and executed trades.
type TradeJournal interface {
	RecordTrade(trade *pkg.Trade)
	RecordExecution(exec *pkg.ExecutedTrade)
}

var _ TradeJournal = (*journal.Journal)(nil)

// Monitor owns the stream connection. Updates are processed serially on the
// subscriber goroutine up to and including the journal write; mirror
// executions run in detached goroutines.
type Monitor struct {
	endpoint  string
	authToken string
	leaders   []string
	parser    *parser.Parser
	journal   TradeJournal
	executor  TradeExecutor
	log       *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}

	wg sync.WaitGroup
}

func New(endpoint, authToken string, leaders []string, p *parser.Parser, j TradeJournal, e TradeExecutor, log *zap.Logger) *Monitor {
	return &Monitor{
		endpoint:  endpoint,
		authToken: authToken,
		leaders:   leaders,
		parser:    p,
		journal:   j,
		executor:  e,
		log:       log,
		seen:      make(map[string]struct{}),
	}
}

// Run keeps the subscription alive until the context is cancelled. Any
// stream error or clean termination is logged and followed by a reconnect.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("starting monitor",
		zap.String("endpoint", m.endpoint),
		zap.Strings("leaders", m.leaders))

	for {
		if err := m.monitorLoop(ctx); err != nil {
			if ctx.Err() != nil {
				m.wg.Wait()
				return ctx.Err()
			}
			m.log.Error("monitor loop failed", zap.Error(err))
		} else {
			m.log.Warn("stream ended, restarting")
		}

		select {
		case <-ctx.Done():
			m.wg.Wait()
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (m *Monitor) monitorLoop(ctx context.Context) error {
	target := strings.TrimPrefix(strings.TrimPrefix(m.endpoint, "https://"), "http://")

	var creds grpc.DialOption
	if strings.HasPrefix(m.endpoint, "http://") {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	} else {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{}))
	}
	conn, err := grpc.NewClient(target, creds)
	if err != nil {
		return fmt.Errorf("connect to stream endpoint: %w", err)
	}
	defer conn.Close()

	if m.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-token", m.authToken)
	}

	client := yellowstone.NewGeyserClient(conn)
	request := m.subscribeRequest()

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("open subscription stream: %w", err)
	}
	if err := stream.Send(request); err != nil {
		// one fresh stream before the reconnect loop takes over
		m.log.Warn("subscribe request failed, retrying on a new stream", zap.Error(err))
		stream, err = client.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("reopen subscription stream: %w", err)
		}
		if err := stream.Send(request); err != nil {
			return fmt.Errorf("send subscribe request: %w", err)
		}
	}
	m.log.Info("subscribed, receiving updates")

	for {
		update, err := stream.Recv()
		if err != nil {
			return fmt.Errorf("stream recv: %w", err)
		}
		m.processUpdate(ctx, update)
	}
}

func (m *Monitor) subscribeRequest() *yellowstone.SubscribeRequest {
	vote := false
	failed := false
	commitment := yellowstone.CommitmentLevel_CONFIRMED

	return &yellowstone.SubscribeRequest{
		Accounts: map[string]*yellowstone.SubscribeRequestFilterAccounts{
			"wallet": {Account: m.leaders},
		},
		Transactions: map[string]*yellowstone.SubscribeRequestFilterTransactions{
			"wallet_tx": {
				Vote:           &vote,
				Failed:         &failed,
				AccountInclude: m.leaders,
			},
		},
		Commitment: &commitment,
	}
}

func (m *Monitor) processUpdate(ctx context.Context, update *yellowstone.SubscribeUpdate) {
	switch u := update.UpdateOneof.(type) {
	case *yellowstone.SubscribeUpdate_Transaction:
		m.processTransaction(ctx, u.Transaction)
	case *yellowstone.SubscribeUpdate_Account:
		if acc := u.Account.GetAccount(); acc != nil {
			m.log.Debug("account update",
				zap.Float64("sol", float64(acc.Lamports)/1e9))
		}
	case *yellowstone.SubscribeUpdate_Ping:
		// keepalive only
	default:
	}
}
