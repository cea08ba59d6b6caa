package main

import (
	"log"
	"net/http"

	fsbackend "github.com/banux/photowall/internal/backend/fs"
	"github.com/banux/photowall/internal/config"
	"github.com/banux/photowall/internal/server"
	"github.com/banux/photowall/web"
)

func main() {
	cfgPath := config.FindConfigFile()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfgPath != "" {
		log.Printf("config loaded from %q", cfgPath)
	}

	if cfg.ViewPIN == "" {
		log.Printf("WARNING: VIEW_PIN is not set – the wall is open to anyone with the link")
	}
	if cfg.AdminPIN == "" {
		log.Printf("WARNING: ADMIN_PIN is not set – delete and rescan are disabled")
	}
	if !cfg.AllowUpload {
		log.Printf("uploads are disabled (set ALLOW_UPLOAD=1 to enable)")
	}

	store, err := fsbackend.New(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("photo store error: %v", err)
	}
	log.Printf("serving photos from %q", cfg.UploadsDir)

	opts := server.Options{
		AllowUpload:    cfg.AllowUpload,
		UploadPIN:      cfg.UploadPIN,
		AdminPIN:       cfg.AdminPIN,
		ViewPIN:        cfg.ViewPIN,
		MaxUploadBytes: cfg.MaxUploadBytes,
		StaticFS:       web.FS,
	}
	srv := server.New(store, opts)

	log.Printf("photowall starting on %s", cfg.ListenAddr)
	log.Printf("Web UI available at http://localhost%s/", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
