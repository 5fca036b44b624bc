package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"nftminter/internal/session"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const (
	resubscribeBackoff = 30 * time.Second
	// maxBlockRange caps one eth_getLogs query; providers reject wider ranges.
	maxBlockRange = 2000
)

// Subscribe watches the contract for confirmation events. Every event is
// delivered to handler regardless of recipient; filtering is the caller's job.
func (r *Runtime) Subscribe(ctx context.Context, handler func(session.MintConfirmationEvent)) (session.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{r.opts.Address},
		Topics:    [][]common.Hash{{r.event.ID}},
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{runtime: r, query: query, handler: handler, done: make(chan struct{})}

	if r.opts.Streaming {
		logs := make(chan evmTypes.Log, 16)
		sub := event.ResubscribeErr(resubscribeBackoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
			if lastErr != nil {
				r.logger.Errorf("WebSocket订阅错误, 重新订阅: %v", lastErr)
			}
			return r.backend.SubscribeFilterLogs(ctx, query, logs)
		})
		go w.stream(ctx, sub, logs)
	} else {
		head, err := r.backend.BlockNumber(ctx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to get block number: %w", err)
		}
		go w.poll(ctx, head+1)
	}

	r.logger.Infof("开始监听 %s 事件, 合约 %s", r.opts.EventName, r.opts.Address.Hex())
	return &subscription{cancel: cancel, done: w.done}, nil
}

type subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops the watcher and waits for it to exit.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

type watcher struct {
	runtime *Runtime
	query   ethereum.FilterQuery
	handler func(session.MintConfirmationEvent)
	done    chan struct{}
}

func (w *watcher) stream(ctx context.Context, sub event.Subscription, logs <-chan evmTypes.Log) {
	defer close(w.done)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			w.runtime.logger.Infof("铸造事件监听已停止")
			return
		case err, ok := <-sub.Err():
			if !ok {
				return
			}
			w.runtime.logger.Errorf("事件订阅终止: %v", err)
			return
		case lg := <-logs:
			w.deliver(lg)
		}
	}
}

// poll is used against plain HTTP endpoints that cannot push logs.
func (w *watcher) poll(ctx context.Context, from uint64) {
	defer close(w.done)

	r := w.runtime
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Infof("铸造事件轮询已停止")
			return
		case <-ticker.C:
		}

		head, err := r.backend.BlockNumber(ctx)
		if err != nil {
			r.logger.Errorf("获取最新区块失败: %v", err)
			continue
		}
		if head < from {
			continue
		}

		from = w.catchUp(ctx, from, head)
	}
}

// catchUp scans [from, head] in maxBlockRange chunks and returns the next
// block to scan. A failed chunk is retried on the next tick.
func (w *watcher) catchUp(ctx context.Context, from, head uint64) uint64 {
	r := w.runtime
	for from <= head {
		to := from + maxBlockRange - 1
		if to > head {
			to = head
		}

		q := w.query
		q.FromBlock = new(big.Int).SetUint64(from)
		q.ToBlock = new(big.Int).SetUint64(to)
		logs, err := r.backend.FilterLogs(ctx, q)
		if err != nil {
			r.logger.Errorf("查询区块 %d-%d 日志失败: %v", from, to, err)
			return from
		}
		for _, lg := range logs {
			w.deliver(lg)
		}
		from = to + 1
	}
	return from
}

func (w *watcher) deliver(lg evmTypes.Log) {
	if lg.Removed {
		return
	}
	ev, err := w.runtime.Decode(lg)
	if err != nil {
		w.runtime.logger.Errorf("解析铸造事件失败 tx=%s: %v", lg.TxHash.Hex(), err)
		return
	}
	w.handler(ev)
}

// Decode turns a raw contract log into a confirmation event.
func (r *Runtime) Decode(lg evmTypes.Log) (session.MintConfirmationEvent, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != r.event.ID {
		return session.MintConfirmationEvent{}, errors.New("log is not a confirmation event")
	}

	fields := make(map[string]interface{})
	if len(r.event.Inputs.NonIndexed()) > 0 {
		if err := r.opts.ABI.UnpackIntoMap(fields, r.opts.EventName, lg.Data); err != nil {
			return session.MintConfirmationEvent{}, fmt.Errorf("unpack event data: %w", err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range r.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
			return session.MintConfirmationEvent{}, fmt.Errorf("parse event topics: %w", err)
		}
	}

	recipient, ok := fields[r.opts.RecipientField].(common.Address)
	if !ok {
		return session.MintConfirmationEvent{}, fmt.Errorf("event field %q is not an address", r.opts.RecipientField)
	}
	tokenID, ok := fields[r.opts.TokenIDField].(*big.Int)
	if !ok {
		return session.MintConfirmationEvent{}, fmt.Errorf("event field %q is not a uint256", r.opts.TokenIDField)
	}

	return session.MintConfirmationEvent{
		Recipient:   recipient,
		TokenID:     tokenID,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		LogIndex:    lg.Index,
	}, nil
}
