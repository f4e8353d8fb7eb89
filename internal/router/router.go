package router

import (
	"net/http"

	"github.com/senyabanana/proposal-service/internal/handlers"
)

func InitRoutes(proposalHandler *handlers.ProposalHandler, analyticsHandler *handlers.AnalyticsHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)

	mux.HandleFunc("POST /api/proposals/new", proposalHandler.CreateProposal)
	mux.HandleFunc("GET /api/proposals", proposalHandler.ListProposals)
	mux.HandleFunc("GET /api/proposals/{proposalId}", proposalHandler.GetProposal)
	mux.HandleFunc("DELETE /api/proposals/{proposalId}", proposalHandler.DeleteProposal)
	mux.HandleFunc("/api/proposals/{proposalId}/items", proposalHandler.EditItems)
	mux.HandleFunc("/api/proposals/{proposalId}/submit", proposalHandler.Submit)
	mux.HandleFunc("/api/proposals/{proposalId}/accept", proposalHandler.Accept)
	mux.HandleFunc("/api/proposals/{proposalId}/reject", proposalHandler.Reject)
	mux.HandleFunc("/api/proposals/{proposalId}/withdraw", proposalHandler.Withdraw)
	mux.HandleFunc("/api/proposals/{proposalId}/history", proposalHandler.GetProposalHistory)

	mux.HandleFunc("/api/analytics", analyticsHandler.GetAnalytics)
	mux.HandleFunc("/api/analytics/records", analyticsHandler.RecordRequest)

	return mux
}
