package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/tiendapos/credit-ledger/internal/logging"
)

type creditStatusUpdate struct {
	SaleID       string `json:"sale_id"`
	CreditID     string `json:"credit_id"`
	CreditStatus string `json:"credit_status"`
}

func main() {
	_ = godotenv.Load()
	logging.Init("mock-sales", "info", os.Getenv("APP_ENV"))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})

	mux.HandleFunc("POST /internal/sales/{saleID}/credit-status", func(w http.ResponseWriter, r *http.Request) {
		var update creditStatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		slog.Info("credit status mirrored",
			"sale_id", r.PathValue("saleID"),
			"credit_id", update.CreditID,
			"credit_status", update.CreditStatus,
		)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "accepted"}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	slog.Info("mock sales service started", "addr", ":8081")
	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
