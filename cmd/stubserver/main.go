// Command stubserver emulates the three backend endpoints the warehouse CLI
// talks to (image upload, registration webhook, intake webhook) so the full
// pipeline can be exercised locally.
//
// Point the CLI at it with a config.json such as:
//
//	{
//	  "endpoints": {
//	    "image_upload": "http://127.0.0.1:8880/upload-image",
//	    "webhook": "http://127.0.0.1:8880/webhook",
//	    "intake_webhook": "http://127.0.0.1:8880/intake"
//	  }
//	}
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/DcSyedFaraz/impora-warehouse/internal/httpserver"
	"github.com/DcSyedFaraz/impora-warehouse/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "listen address")
	port := flag.String("port", ":8880", "listen port")
	flag.Parse()

	logger := logging.New()

	mux := http.NewServeMux()
	mux.HandleFunc("/upload-image", handleUpload(logger))
	mux.HandleFunc("/webhook", handleWebhook(logger))
	mux.HandleFunc("/intake", handleIntake(logger))

	srv, err := httpserver.New(httpserver.Config{
		Addr:    *addr,
		Port:    *port,
		Logger:  logger,
		Handler: mux,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func handleUpload(logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if _, _, ok := r.BasicAuth(); !ok {
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad multipart body", http.StatusBadRequest)
			return
		}
		parts := r.MultipartForm.File["image[]"]
		if len(parts) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}

		urls := make([]string, len(parts))
		for i, part := range parts {
			urls[i] = fmt.Sprintf("https://cdn.stub.local/%s/%s", uuid.NewString(), part.Filename)
		}
		logger.Printf("stored %d image(s): %v", len(parts), urls)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "urls": urls})
	}
}

func handleWebhook(logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		logger.Printf("webhook payload: %s", body)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("done"))
	}
}

// handleIntake mimics the make.com scenario: a known-used QR code is rejected
// with 400, everything else is accepted.
func handleIntake(logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var record struct {
			QRCode        string `json:"qrCode"`
			LabelErzeugen bool   `json:"label_erzeugen"`
		}
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		logger.Printf("intake payload: qr=%s label=%v", record.QRCode, record.LabelErzeugen)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if record.QRCode == "USED" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("QR code already used"))
			return
		}
		if record.LabelErzeugen {
			_, _ = w.Write([]byte("Label wird erstellt"))
			return
		}
		_, _ = w.Write([]byte("OK"))
	}
}
