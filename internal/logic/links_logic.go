package logic

import (
	"context"

	"nftminter/internal/svc"
	"nftminter/internal/types"

	"github.com/zeromicro/go-zero/core/logx"
)

type LinksLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewLinksLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LinksLogic {
	return &LinksLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

func (l *LinksLogic) Links() *types.LinksResp {
	return &types.LinksResp{
		Collection: l.svcCtx.Config.Links.Collection,
		Contract:   l.svcCtx.Links.ContractPage(),
		Social:     l.svcCtx.Config.Links.Social,
	}
}
