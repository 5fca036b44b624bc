package handler

import (
	"net/http"

	"nftminter/internal/logic"
	"nftminter/internal/svc"

	"github.com/zeromicro/go-zero/rest/httpx"
)

func SessionStatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		httpx.OkJsonCtx(r.Context(), w, l.Status())
	}
}

func SessionProbeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		resp, err := l.Probe()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

// SessionConnectHandler 请求钱包授权
func SessionConnectHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		resp, err := l.Connect()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

func SessionMintHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		resp, err := l.Mint()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

func NotificationsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSessionLogic(r.Context(), svcCtx)
		httpx.OkJsonCtx(r.Context(), w, l.Notifications())
	}
}

func LinksHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewLinksLogic(r.Context(), svcCtx)
		httpx.OkJsonCtx(r.Context(), w, l.Links())
	}
}
