package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"
)

type State int

const (
	Disconnected State = iota
	Connected
	Minting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Minting:
		return "minting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State         State
	Address       common.Address
	Pending       *MintRequest
	WalletPresent bool
	Armed         bool
}

// Controller 钱包/合约会话控制器
//
// 状态机: Disconnected -> Connected -> Minting -> Connected。
// 所有状态字段由 mu 保护，持锁期间不做任何阻塞 I/O；
// 订阅的建立与释放由 armMu 串行化，保证同一时间最多一个监听器。
type Controller struct {
	wallet   WalletProvider
	runtime  ContractRuntime
	notifier Notifier
	links    Links
	logger   logx.Logger
	now      func() time.Time

	mu            sync.Mutex
	state         State
	address       common.Address
	pending       *MintRequest
	walletPresent bool
	announced     map[string]struct{}

	armMu     sync.Mutex
	sub       Subscription
	cancelSub context.CancelFunc
	closed    bool
}

// NewController creates a Disconnected session. wallet may be nil when no
// provider is installed.
func NewController(wallet WalletProvider, runtime ContractRuntime, notifier Notifier, links Links) *Controller {
	return &Controller{
		wallet:    wallet,
		runtime:   runtime,
		notifier:  notifier,
		links:     links,
		logger:    logx.WithContext(context.Background()),
		now:       time.Now,
		announced: make(map[string]struct{}),
	}
}

func (c *Controller) present() bool {
	return c.wallet != nil && c.wallet.Present()
}

// Probe silently checks for an already authorized account. It is meant to be
// run once at startup and again only on an explicit refresh.
func (c *Controller) Probe(ctx context.Context) error {
	present := c.present()
	c.setWalletPresent(present)

	if !present {
		c.logger.Infof("未检测到钱包提供者, 钱包功能不可用")
		return nil
	}

	accounts, err := c.wallet.AuthorizedAccounts(ctx)
	if errors.Is(err, ErrWalletUnavailable) {
		c.setWalletPresent(false)
		c.logger.Infof("钱包提供者不可达, 钱包功能不可用: %v", err)
		return nil
	}
	if err != nil {
		c.logger.Errorf("查询已授权账户失败: %v", err)
		return fmt.Errorf("query authorized accounts: %w", err)
	}
	if len(accounts) == 0 {
		c.logger.Infof("没有已授权的账户")
		return nil
	}

	c.logger.Infof("发现已授权账户: %s", accounts[0].Hex())
	c.connected(accounts[0])
	return c.arm()
}

// Connect asks the wallet for explicit authorization. Calling it while already
// connected re-confirms the account and may replace it.
func (c *Controller) Connect(ctx context.Context) (common.Address, error) {
	if !c.present() {
		return common.Address{}, c.walletUnavailable(ctx, ErrWalletUnavailable)
	}

	accounts, err := c.wallet.RequestAccounts(ctx)
	switch {
	case errors.Is(err, ErrWalletUnavailable):
		return common.Address{}, c.walletUnavailable(ctx, err)
	case errors.Is(err, ErrAuthorizationDenied):
		c.logger.Infof("用户拒绝了钱包授权: %v", err)
		return common.Address{}, c.denied(ctx, err)
	case err != nil:
		c.logger.Errorf("请求钱包授权失败: %v", err)
		return common.Address{}, fmt.Errorf("request accounts: %w", err)
	case len(accounts) == 0:
		c.logger.Infof("钱包未返回任何账户")
		return common.Address{}, c.denied(ctx, ErrAuthorizationDenied)
	}

	account := accounts[0]
	c.logger.Infof("账户已连接: %s", account.Hex())
	c.connected(account)
	if err := c.arm(); err != nil {
		return account, err
	}
	return account, nil
}

func (c *Controller) setWalletPresent(present bool) {
	c.mu.Lock()
	c.walletPresent = present
	c.mu.Unlock()
}

// walletUnavailable records the missing provider and tells the user.
func (c *Controller) walletUnavailable(ctx context.Context, cause error) error {
	c.setWalletPresent(false)
	msg := "No wallet found. Install a wallet to continue."
	if cause != ErrWalletUnavailable {
		c.logger.Infof("钱包不可用: %v", cause)
		msg = fmt.Sprintf("No wallet found (%v).", cause)
	}
	c.notify(ctx, Notification{Kind: KindWalletUnavailable, Message: msg})
	return cause
}

func (c *Controller) denied(ctx context.Context, cause error) error {
	c.notify(ctx, Notification{
		Kind:    KindAuthorizationDenied,
		Message: "Wallet authorization was rejected.",
	})
	return cause
}

func (c *Controller) connected(account common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.walletPresent = true
	c.address = account
	if c.state == Disconnected {
		c.state = Connected
	}
}

// arm registers the confirmation listener unless one is already live.
func (c *Controller) arm() error {
	c.armMu.Lock()
	defer c.armMu.Unlock()

	if c.sub != nil || c.closed {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.runtime.Subscribe(ctx, c.HandleEvent)
	if err != nil {
		cancel()
		c.logger.Errorf("订阅铸造确认事件失败: %v", err)
		return fmt.Errorf("subscribe confirmation events: %w", err)
	}
	c.sub = sub
	c.cancelSub = cancel
	c.logger.Infof("Setup event listener!")
	return nil
}

// Mint submits a mint and waits for its inclusion. The success announcement
// comes from the confirmation event, not from this call.
func (c *Controller) Mint(ctx context.Context) (*MintRequest, error) {
	req, err := c.Submit(ctx)
	if err != nil {
		return nil, err
	}
	// 已提交的交易不能取消, 等待上链不受调用方取消影响
	if err := c.Await(context.WithoutCancel(ctx), req); err != nil {
		return req, err
	}
	return req, nil
}

// Submit moves the session to Minting and sends the mint transaction.
// The caller must follow a successful Submit with Await.
func (c *Controller) Submit(ctx context.Context) (*MintRequest, error) {
	c.mu.Lock()
	switch c.state {
	case Disconnected:
		c.mu.Unlock()
		return nil, ErrNotConnected
	case Minting:
		c.mu.Unlock()
		return nil, ErrMintInProgress
	}
	account := c.address
	c.state = Minting
	c.mu.Unlock()

	c.logger.Infof("Going to pop wallet now to pay gas... account=%s", account.Hex())
	tx, err := c.submit(ctx, account)
	if err != nil {
		return nil, c.fail(ctx, nil, err)
	}

	req := &MintRequest{
		Account:     account,
		SubmittedAt: c.now(),
		Tx:          tx,
		TxLink:      c.links.Transaction(tx.Hash()),
	}
	c.mu.Lock()
	c.pending = req
	c.mu.Unlock()

	c.logger.Infof("Mining now... tx=%s", tx.Hash().Hex())
	return req, nil
}

func (c *Controller) submit(ctx context.Context, account common.Address) (TransactionHandle, error) {
	signer, err := c.wallet.Signer(account)
	if err != nil {
		return nil, fmt.Errorf("load signer: %w", err)
	}
	handle, err := c.runtime.Connect(account, signer)
	if err != nil {
		return nil, fmt.Errorf("connect contract: %w", err)
	}
	return handle.Mint(ctx)
}

// Await blocks until req is included. There is no timeout.
func (c *Controller) Await(ctx context.Context, req *MintRequest) error {
	if req == nil || req.Tx == nil {
		return errors.New("nil mint request")
	}

	if err := req.Tx.AwaitInclusion(ctx); err != nil {
		return c.fail(ctx, req, err)
	}

	c.mu.Lock()
	if c.pending == req {
		c.pending = nil
		c.state = Connected
	}
	c.mu.Unlock()

	c.logger.Infof("Mined, see transaction: %s", req.TxLink)
	return nil
}

// fail returns the session to Connected and reports err as MintFailed.
func (c *Controller) fail(ctx context.Context, req *MintRequest, cause error) error {
	c.mu.Lock()
	if c.pending == req && c.state == Minting {
		c.pending = nil
		c.state = Connected
	}
	c.mu.Unlock()

	mintErr := newMintFailed(cause)
	c.logger.Errorf("铸造失败: %v", mintErr)

	n := Notification{
		Kind:    KindMintFailed,
		Message: fmt.Sprintf("Minting failed: %s", mintErr.Reason),
	}
	if req != nil {
		n.TxHash = req.Tx.Hash().Hex()
		n.Link = req.TxLink
	}
	c.notify(ctx, n)
	return mintErr
}

// HandleEvent is the confirmation listener. Events for other recipients are
// ignored and each token id is announced at most once.
func (c *Controller) HandleEvent(ev MintConfirmationEvent) {
	if ev.TokenID == nil {
		return
	}

	c.mu.Lock()
	if c.state == Disconnected || ev.Recipient != c.address {
		c.mu.Unlock()
		c.logger.Debugf("忽略其他地址的铸造事件: from=%s tokenId=%s", ev.Recipient.Hex(), ev.TokenID)
		return
	}
	key := ev.TokenID.String()
	if _, seen := c.announced[key]; seen {
		c.mu.Unlock()
		return
	}
	c.announced[key] = struct{}{}
	c.mu.Unlock()

	tokenID := new(big.Int).Set(ev.TokenID)
	link := c.links.Asset(tokenID)
	c.logger.Infow("铸造确认",
		logx.Field("from", ev.Recipient.Hex()),
		logx.Field("tokenId", key),
		logx.Field("tx", ev.TxHash.Hex()))

	c.notify(context.Background(), Notification{
		Kind:    KindMintConfirmed,
		TokenID: tokenID,
		Link:    link,
		TxHash:  ev.TxHash.Hex(),
		Message: fmt.Sprintf("Hey there! We've minted your NFT and sent it to your wallet. "+
			"It may be blank right now. It can take a max of 10 min to show up on OpenSea. Here's the link: %s", link),
	})
}

func (c *Controller) notify(ctx context.Context, n Notification) {
	if c.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}
	c.notifier.Notify(ctx, n)
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.armMu.Lock()
	armed := c.sub != nil
	c.armMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:         c.state,
		Address:       c.address,
		Pending:       c.pending,
		WalletPresent: c.walletPresent,
		Armed:         armed,
	}
}

// Close releases the confirmation subscription. It is safe to call more than once.
func (c *Controller) Close() {
	c.armMu.Lock()
	defer c.armMu.Unlock()

	c.closed = true
	if c.sub == nil {
		return
	}
	c.sub.Unsubscribe()
	c.cancelSub()
	c.sub = nil
	c.cancelSub = nil
	c.logger.Infof("confirmation listener released")
}
