package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/logx"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

var (
	userAddr    = common.HexToAddress("0x0000000000000000000000000000000000000abc")
	foreignAddr = common.HexToAddress("0x0000000000000000000000000000000000000def")
)

type fakeWallet struct {
	present    bool
	authorized []common.Address
	requested  []common.Address
	requestErr error
	authErr    error
}

func (w *fakeWallet) Present() bool { return w.present }

func (w *fakeWallet) AuthorizedAccounts(context.Context) ([]common.Address, error) {
	if w.authErr != nil {
		return nil, w.authErr
	}
	return w.authorized, nil
}

func (w *fakeWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	if w.requestErr != nil {
		return nil, w.requestErr
	}
	return w.requested, nil
}

func (w *fakeWallet) Signer(account common.Address) (Signer, error) {
	return fakeSigner{account}, nil
}

type fakeSigner struct{ addr common.Address }

func (s fakeSigner) Address() common.Address { return s.addr }

func (s fakeSigner) SignTx(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type fakeTx struct {
	hash     common.Hash
	included chan error
}

func (t *fakeTx) Hash() common.Hash { return t.hash }

func (t *fakeTx) AwaitInclusion(ctx context.Context) error {
	select {
	case err := <-t.included:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeRuntime struct {
	mu            sync.Mutex
	subscriptions int
	released      int
	handler       func(MintConfirmationEvent)
	mintErr       error
	minted        []common.Address
	tx            *fakeTx
}

func (r *fakeRuntime) Connect(account common.Address, signer Signer) (ContractHandle, error) {
	if signer.Address() != account {
		return nil, errors.New("signer mismatch")
	}
	return &fakeHandle{runtime: r, account: account}, nil
}

func (r *fakeRuntime) Subscribe(_ context.Context, handler func(MintConfirmationEvent)) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscriptions++
	r.handler = handler
	return fakeSub{r}, nil
}

func (r *fakeRuntime) emit(ev MintConfirmationEvent) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

type fakeSub struct{ r *fakeRuntime }

func (s fakeSub) Unsubscribe() {
	s.r.mu.Lock()
	s.r.released++
	s.r.handler = nil
	s.r.mu.Unlock()
}

type fakeHandle struct {
	runtime *fakeRuntime
	account common.Address
}

func (h *fakeHandle) Mint(context.Context) (TransactionHandle, error) {
	h.runtime.mu.Lock()
	defer h.runtime.mu.Unlock()
	if h.runtime.mintErr != nil {
		return nil, h.runtime.mintErr
	}
	h.runtime.minted = append(h.runtime.minted, h.account)
	return h.runtime.tx, nil
}

type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recorder) ofKind(kind NotificationKind) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.items {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type testLinks struct{}

func (testLinks) Asset(tokenID *big.Int) string {
	return fmt.Sprintf("https://testnets.opensea.io/assets/0xB7f3b4320545F21362d02a27BC41dbe8492aD179/%s", tokenID)
}

func (testLinks) Transaction(hash common.Hash) string {
	return "https://sepolia.etherscan.io/tx/" + hash.Hex()
}

func newTestController(w WalletProvider) (*Controller, *fakeRuntime, *recorder) {
	rt := &fakeRuntime{tx: &fakeTx{hash: common.HexToHash("0x01"), included: make(chan error, 1)}}
	rec := &recorder{}
	return NewController(w, rt, rec, testLinks{}), rt, rec
}

func TestProbeWithoutProvider(t *testing.T) {
	c, rt, _ := newTestController(nil)

	require.NoError(t, c.Probe(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, Disconnected, snap.State)
	assert.False(t, snap.WalletPresent)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestProbeAbsentProvider(t *testing.T) {
	c, rt, _ := newTestController(&fakeWallet{present: false, authorized: []common.Address{userAddr}})

	require.NoError(t, c.Probe(context.Background()))

	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestProbeNoAuthorizedAccounts(t *testing.T) {
	c, rt, _ := newTestController(&fakeWallet{present: true})

	require.NoError(t, c.Probe(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, Disconnected, snap.State)
	assert.True(t, snap.WalletPresent)
	assert.Equal(t, common.Address{}, snap.Address)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestProbeTwiceArmsOnce(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})

	require.NoError(t, c.Probe(context.Background()))
	require.NoError(t, c.Probe(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, Connected, snap.State)
	assert.Equal(t, userAddr, snap.Address)
	assert.True(t, snap.Armed)
	assert.Equal(t, 1, rt.subscriptions)

	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(3)})
	assert.Len(t, rec.ofKind(KindMintConfirmed), 1)
}

func TestConcurrentProbeAndConnectArmOnce(t *testing.T) {
	w := &fakeWallet{present: true, authorized: []common.Address{userAddr}, requested: []common.Address{userAddr}}
	c, rt, _ := newTestController(w)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = c.Probe(context.Background())
			} else {
				_, _ = c.Connect(context.Background())
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, rt.subscriptions)
}

func TestConnectWithoutProvider(t *testing.T) {
	c, rt, rec := newTestController(nil)

	_, err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Len(t, rec.ofKind(KindWalletUnavailable), 1)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestConnectRejected(t *testing.T) {
	w := &fakeWallet{present: true, requestErr: fmt.Errorf("%w: user rejected the request", ErrAuthorizationDenied)}
	c, rt, rec := newTestController(w)

	_, err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Len(t, rec.ofKind(KindAuthorizationDenied), 1)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestConnectProviderError(t *testing.T) {
	boom := errors.New("provider offline")
	c, _, rec := newTestController(&fakeWallet{present: true, requestErr: boom})

	_, err := c.Connect(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Empty(t, rec.ofKind(KindAuthorizationDenied))
}

func TestProbeUnreachableProvider(t *testing.T) {
	w := &fakeWallet{present: true, authErr: fmt.Errorf("%w: connection refused", ErrWalletUnavailable)}
	c, rt, _ := newTestController(w)

	require.NoError(t, c.Probe(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, Disconnected, snap.State)
	assert.False(t, snap.WalletPresent)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestConnectUnreachableProvider(t *testing.T) {
	w := &fakeWallet{present: true, requestErr: fmt.Errorf("%w: dial tcp 127.0.0.1:1: connection refused", ErrWalletUnavailable)}
	c, rt, rec := newTestController(w)

	_, err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrWalletUnavailable)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.False(t, c.Snapshot().WalletPresent)
	unavailable := rec.ofKind(KindWalletUnavailable)
	require.Len(t, unavailable, 1)
	assert.Contains(t, unavailable[0].Message, "connection refused")
	assert.Equal(t, 0, rt.subscriptions)
}

func TestConnectNoAccountsReturned(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true})

	_, err := c.Connect(context.Background())

	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Len(t, rec.ofKind(KindAuthorizationDenied), 1)
	assert.Equal(t, 0, rt.subscriptions)
}

func TestConnectOverwritesAddress(t *testing.T) {
	w := &fakeWallet{present: true, authorized: []common.Address{userAddr}}
	c, rt, _ := newTestController(w)
	require.NoError(t, c.Probe(context.Background()))

	w.requested = []common.Address{foreignAddr}
	addr, err := c.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, foreignAddr, addr)
	assert.Equal(t, foreignAddr, c.Snapshot().Address)
	assert.Equal(t, 1, rt.subscriptions)
}

func TestMintWhileDisconnected(t *testing.T) {
	c, rt, _ := newTestController(&fakeWallet{present: true})

	_, err := c.Mint(context.Background())

	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, Disconnected, c.Snapshot().State)
	assert.Empty(t, rt.minted)
}

func TestMintWhileMinting(t *testing.T) {
	c, rt, _ := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	req, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, Minting, c.Snapshot().State)

	_, err = c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrMintInProgress)
	_, err = c.Mint(context.Background())
	assert.ErrorIs(t, err, ErrMintInProgress)

	snap := c.Snapshot()
	assert.Equal(t, Minting, snap.State)
	assert.Same(t, req, snap.Pending)
	assert.Len(t, rt.minted, 1)
}

func TestMintSubmissionFails(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))
	rt.mintErr = errors.New("insufficient funds for gas")

	_, err := c.Mint(context.Background())

	var mintErr *MintFailedError
	require.ErrorAs(t, err, &mintErr)
	assert.ErrorIs(t, err, ErrMintFailed)
	assert.Contains(t, mintErr.Reason, "insufficient funds")

	snap := c.Snapshot()
	assert.Equal(t, Connected, snap.State)
	assert.Nil(t, snap.Pending)
	assert.Len(t, rec.ofKind(KindMintFailed), 1)
	assert.Empty(t, rec.ofKind(KindMintConfirmed))
}

func TestMintInclusionFails(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))
	rt.tx.included <- errors.New("transaction reverted")

	req, err := c.Mint(context.Background())

	assert.ErrorIs(t, err, ErrMintFailed)
	require.NotNil(t, req)
	assert.Equal(t, Connected, c.Snapshot().State)
	failed := rec.ofKind(KindMintFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, req.Tx.Hash().Hex(), failed[0].TxHash)
}

func TestMintIgnoresCallerCancellation(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Mint(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return c.Snapshot().Pending != nil }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		t.Fatalf("mint returned after cancellation: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, Minting, c.Snapshot().State)

	rt.tx.included <- nil
	require.NoError(t, <-done)
	assert.Equal(t, Connected, c.Snapshot().State)
	assert.Empty(t, rec.ofKind(KindMintFailed))
}

func TestForeignEventIgnored(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	rt.emit(MintConfirmationEvent{Recipient: foreignAddr, TokenID: big.NewInt(9)})

	assert.Empty(t, rec.ofKind(KindMintConfirmed))
}

func TestDuplicateEventNotifiesOnce(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	ev := MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(7)}
	rt.emit(ev)
	rt.emit(ev)

	confirmed := rec.ofKind(KindMintConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, int64(7), confirmed[0].TokenID.Int64())
}

func TestEventMatchesCaseInsensitively(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	rt.emit(MintConfirmationEvent{
		Recipient: common.HexToAddress("0x0000000000000000000000000000000000000ABC"),
		TokenID:   big.NewInt(1),
	})

	assert.Len(t, rec.ofKind(KindMintConfirmed), 1)
}

func TestEventUsesAddressAtDelivery(t *testing.T) {
	w := &fakeWallet{present: true, authorized: []common.Address{userAddr}}
	c, rt, rec := newTestController(w)
	require.NoError(t, c.Probe(context.Background()))

	w.requested = []common.Address{foreignAddr}
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(1)})
	assert.Empty(t, rec.ofKind(KindMintConfirmed))

	rt.emit(MintConfirmationEvent{Recipient: foreignAddr, TokenID: big.NewInt(2)})
	assert.Len(t, rec.ofKind(KindMintConfirmed), 1)
}

func TestConnectThenMintScenario(t *testing.T) {
	w := &fakeWallet{present: true, requested: []common.Address{userAddr}}
	c, rt, rec := newTestController(w)

	require.NoError(t, c.Probe(context.Background()))
	require.Equal(t, Disconnected, c.Snapshot().State)

	addr, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, userAddr, addr)
	assert.Equal(t, Connected, c.Snapshot().State)

	req, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Minting, c.Snapshot().State)
	assert.Equal(t, common.HexToHash("0x01"), req.Tx.Hash())
	assert.Equal(t, userAddr, req.Account)

	done := make(chan error, 1)
	go func() { done <- c.Await(context.Background(), req) }()

	rt.tx.included <- nil
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("await did not return")
	}
	assert.Equal(t, Connected, c.Snapshot().State)
	assert.Empty(t, rec.ofKind(KindMintConfirmed))

	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(7)})
	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(7)})

	confirmed := rec.ofKind(KindMintConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "7", confirmed[0].TokenID.String())
	assert.Equal(t, "https://testnets.opensea.io/assets/0xB7f3b4320545F21362d02a27BC41dbe8492aD179/7", confirmed[0].Link)
	assert.Contains(t, confirmed[0].Message, confirmed[0].Link)
}

func TestEventBeforeInclusion(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	req, err := c.Submit(context.Background())
	require.NoError(t, err)

	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(11)})
	assert.Len(t, rec.ofKind(KindMintConfirmed), 1)
	assert.Equal(t, Minting, c.Snapshot().State)

	rt.tx.included <- nil
	require.NoError(t, c.Await(context.Background(), req))
	assert.Equal(t, Connected, c.Snapshot().State)
	assert.Len(t, rec.ofKind(KindMintConfirmed), 1)
}

func TestCloseReleasesSubscription(t *testing.T) {
	c, rt, rec := newTestController(&fakeWallet{present: true, authorized: []common.Address{userAddr}})
	require.NoError(t, c.Probe(context.Background()))

	c.Close()
	c.Close()
	assert.Equal(t, 1, rt.released)
	assert.False(t, c.Snapshot().Armed)

	rt.emit(MintConfirmationEvent{Recipient: userAddr, TokenID: big.NewInt(5)})
	assert.Empty(t, rec.ofKind(KindMintConfirmed))

	require.NoError(t, c.Probe(context.Background()))
	assert.Equal(t, 1, rt.subscriptions)
}
