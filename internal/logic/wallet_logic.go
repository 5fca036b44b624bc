package logic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nftminter/internal/config"
	"nftminter/internal/constant"
	"nftminter/internal/model"
	"nftminter/internal/svc"
	"nftminter/internal/types"
	"nftminter/internal/wallet"

	"github.com/zeromicro/go-zero/core/logx"
)

var ErrKeystoreDisabled = errors.New("wallet_init is only available in keystore wallet mode")

type WalletLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewWalletLogic(ctx context.Context, svcCtx *svc.ServiceContext) *WalletLogic {
	return &WalletLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// WalletInit 生成一个新的 EVM 私钥并保存到本地钱包库
func (l *WalletLogic) WalletInit(req *types.WalletInitReq) (*types.WalletInitResp, error) {
	l.Infof("--- 开始处理 /wallet_init 请求, name: %s ---", req.Name)
	if l.svcCtx.Config.Wallet.Mode != config.WalletModeKeystore || l.svcCtx.WalletsDao == nil {
		return nil, ErrKeystoreDisabled
	}

	address, keyHex, err := wallet.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate EVM private key: %w", err)
	}

	// !!! 警告: 在生产环境中，私钥在存入数据库前必须经过强加密 !!!
	newWallet := &model.Wallets{
		UserId:              "local",
		Name:                req.Name,
		Address:             address.Hex(),
		EncryptedPrivateKey: keyHex,
		PhoneNumber:         sql.NullString{String: req.PhoneNumber, Valid: req.PhoneNumber != ""},
		Email:               sql.NullString{String: req.Email, Valid: req.Email != ""},
		ChainType:           sql.NullString{String: constant.ChainTypeEVM, Valid: true},
	}
	if err := l.svcCtx.WalletsDao.Insert(l.ctx, newWallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet to database: %w", err)
	}

	l.Infof("✅ 钱包创建成功: %s", newWallet.Address)
	return &types.WalletInitResp{
		Chain:   l.svcCtx.Config.Chain.Name,
		Address: newWallet.Address,
	}, nil
}
