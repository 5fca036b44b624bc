package handler

import (
	"net/http"

	"nftminter/internal/logic"
	"nftminter/internal/svc"
	"nftminter/internal/types"

	"github.com/zeromicro/go-zero/rest/httpx"
)

// WalletInitHandler 创建本地 eth 钱包
func WalletInitHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.WalletInitReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, badRequestError{err})
			return
		}

		l := logic.NewWalletLogic(r.Context(), svcCtx)
		resp, err := l.WalletInit(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
