package logic

import (
	"context"

	"nftminter/internal/session"
	"nftminter/internal/svc"
	"nftminter/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

type SessionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewSessionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SessionLogic {
	return &SessionLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

func (l *SessionLogic) Status() *types.SessionResp {
	snap := l.svcCtx.Session.Snapshot()
	resp := &types.SessionResp{
		State:         snap.State.String(),
		WalletPresent: snap.WalletPresent,
		Listening:     snap.Armed,
	}
	if snap.State != session.Disconnected {
		resp.Address = snap.Address.Hex()
	}
	if snap.Pending != nil {
		resp.Pending = &types.PendingMint{
			TxHash:      snap.Pending.Tx.Hash().Hex(),
			ExplorerUrl: snap.Pending.TxLink,
			SubmittedAt: snap.Pending.SubmittedAt,
		}
	}
	return resp
}

// Probe 重新静默检查已授权的钱包账户
func (l *SessionLogic) Probe() (*types.SessionResp, error) {
	if err := l.svcCtx.Session.Probe(l.ctx); err != nil {
		return nil, err
	}
	return l.Status(), nil
}

func (l *SessionLogic) Connect() (*types.ConnectResp, error) {
	l.Infof("--- 开始处理 /session/connect 请求 ---")
	addr, err := l.svcCtx.Session.Connect(l.ctx)
	if err != nil {
		l.Errorf("连接钱包失败: %v", err)
		return nil, err
	}
	return &types.ConnectResp{
		Address: addr.Hex(),
		Message: "wallet connected",
	}, nil
}

// Mint submits the mint transaction and waits for inclusion in the background.
// The success announcement comes from the confirmation event.
func (l *SessionLogic) Mint() (*types.MintResp, error) {
	l.Infof("--- 开始处理 /session/mint 请求 ---")
	req, err := l.svcCtx.Session.Submit(l.ctx)
	if err != nil {
		return nil, err
	}

	// 请求上下文会随响应结束而取消, 等待上链使用独立的 context
	go func() {
		if err := l.svcCtx.Session.Await(context.Background(), req); err != nil {
			logx.Errorf("铸造交易 %s 失败: %v", req.Tx.Hash().Hex(), err)
			return
		}
		logx.Infof("✅ 铸造交易已上链: %s", req.Tx.Hash().Hex())
	}()

	return &types.MintResp{
		TxHash:      req.Tx.Hash().Hex(),
		ExplorerUrl: req.TxLink,
		Message:     "Mining... please wait.",
		Status:      "pending",
	}, nil
}

// Notifications drains the one-shot notification queue.
func (l *SessionLogic) Notifications() *types.NotificationsResp {
	pending := l.svcCtx.Hub.Drain()
	items := make([]types.NotificationItem, 0, len(pending))
	for _, n := range pending {
		item := types.NotificationItem{
			Kind:      string(n.Kind),
			Message:   n.Message,
			Link:      n.Link,
			TxHash:    n.TxHash,
			CreatedAt: n.CreatedAt,
		}
		if n.TokenID != nil {
			item.TokenId = n.TokenID.String()
		}
		items = append(items, item)
	}
	return &types.NotificationsResp{Notifications: items}
}
