package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerProducerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/events", handler.PostEvent)
	mux.HandleFunc("POST /v1/matches", handler.AddMatch)
	mux.HandleFunc("PUT /v1/matches", handler.ReconcileMatches)
	mux.HandleFunc("DELETE /v1/matches/{matchID}", handler.RemoveMatch)
}

func registerBoardRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/board", handler.GetBoard)
	mux.HandleFunc("POST /v1/board/matches/{matchID}/dismiss", handler.DismissMatch)
	mux.HandleFunc("POST /v1/board/matches/{matchID}/navigate", handler.NavigateMatch)
}

func registerChannelRoutes(mux *http.ServeMux, channels ChannelServer) {
	if channels == nil {
		return
	}

	mux.HandleFunc("GET /v1/channels/producer", channels.ServeProducer)
	mux.HandleFunc("GET /v1/channels/board", channels.ServeViewer)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.TriggerRefresh)))
}
