package handler

import (
	"net/http"
)

// Routes groups the handlers mounted by NewRouter
type Routes struct {
	Accounts *AccountHandler
	Folders  *FolderHandler
	Files    *FileHandler
	Tree     *TreeHandler
	Health   *HealthHandler
	Metrics  http.Handler // optional

	// Authenticate verifies the caller; Resolve additionally loads the
	// caller's transport credentials
	Authenticate func(http.Handler) http.Handler
	Resolve      func(http.Handler) http.Handler
}

// NewRouter registers every route. Middleware is applied per route so the
// request logger sees the matched pattern.
func NewRouter(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return rt.Authenticate(h)
	}
	drive := func(h http.HandlerFunc) http.Handler {
		return rt.Authenticate(rt.Resolve(h))
	}

	mux.HandleFunc("GET /health", rt.Health.Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	// Account routes (no credentials exist yet)
	mux.Handle("POST /api/accounts", authed(rt.Accounts.Register))
	mux.Handle("GET /api/accounts/me", authed(rt.Accounts.Me))

	// Folder routes
	mux.Handle("GET /api/folders", drive(rt.Folders.ListRoot))
	mux.Handle("POST /api/folders", drive(rt.Folders.CreateFolder))
	mux.Handle("GET /api/folders/{id}", drive(rt.Folders.ListChildren))
	mux.Handle("PATCH /api/folders/{id}", drive(rt.Folders.UpdateFolder))
	mux.Handle("DELETE /api/folders/{id}", drive(rt.Folders.DeleteFolder))
	mux.Handle("GET /api/folders/{id}/path", drive(rt.Folders.GetPath))
	mux.Handle("GET /api/tree", drive(rt.Tree.GetTree))

	// File routes
	mux.Handle("POST /api/files", drive(rt.Files.UploadFile))
	mux.Handle("GET /api/files/{id}", drive(rt.Files.GetFile))
	mux.Handle("PATCH /api/files/{id}", drive(rt.Files.UpdateFile))
	mux.Handle("DELETE /api/files/{id}", drive(rt.Files.DeleteFile))
	mux.Handle("GET /api/files/{id}/link", drive(rt.Files.GetLink))
	mux.Handle("GET /api/files/{id}/content", drive(rt.Files.GetContent))

	return mux
}
