package handler

import (
	"net/http"
	"time"

	"nftminter/internal/svc"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	httpx.SetErrorHandlerCtx(errorResponse)

	server.AddRoutes(
		[]rest.Route{
			// --- Session Routes ---
			{
				Method:  http.MethodGet,
				Path:    "/session",
				Handler: SessionStatusHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/session/probe",
				Handler: SessionProbeHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/session/connect",
				Handler: SessionConnectHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/session/mint",
				Handler: SessionMintHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/notifications",
				Handler: NotificationsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/links",
				Handler: LinksHandler(serverCtx),
			},
			// --- Keystore Routes ---
			{
				Method:  http.MethodPost,
				Path:    "/wallet_init",
				Handler: WalletInitHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
		rest.WithTimeout(30000*time.Millisecond),
	)
}
