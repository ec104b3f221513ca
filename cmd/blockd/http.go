/* Copyright 2021 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/Comcast/blockwright/catalog"
	"github.com/Comcast/blockwright/compiler"
	"github.com/Comcast/blockwright/store"
)

// Service is the editor-facing HTTP glue: it serves the editor payload
// and runs the program-save path.  Transport only; the work happens in
// catalog and compiler.
type Service struct {
	Config *Config
	Store  store.Store

	// CanConfigure gates who may submit a program for a guild.  Its
	// semantics come from the identity collaborator, not from here.
	CanConfigure func(actor, guild string) bool

	// Example is served as the workspace for tenants with no saved
	// program.
	Example []byte
}

func (s *Service) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/editor", s.handleEditor)
	mux.HandleFunc("/save", s.handleSave)
	return mux
}

// editorResponse is the registry payload plus the tenant's last
// workspace.
type editorResponse struct {
	*catalog.EditorPayload
	Workspace string `json:"workspace"`
}

func (s *Service) handleEditor(w http.ResponseWriter, req *http.Request) {
	guild := req.URL.Query().Get("guild")
	if guild == "" {
		http.Error(w, "no guild", http.StatusBadRequest)
		return
	}

	// A fresh registry per request: load cost is proportional to the
	// catalog, not to request volume, and catalogs are small.
	reg, err := catalog.Load(s.Config.DefsDir, s.Config.Icons)
	if err != nil {
		log.Printf("blockd: catalog load: %s", err)
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}

	resp := &editorResponse{
		EditorPayload: reg.Payload(),
	}

	saved, err := s.Store.ReadProgram(req.Context(), guild)
	if err != nil {
		log.Printf("blockd: program read for %s: %s", guild, err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	switch {
	case saved != nil:
		resp.Workspace = string(saved.Workspace)
	default:
		resp.Workspace = string(s.Example)
	}

	writeJSON(w, http.StatusOK, resp)
}

// saveRequest is the editor's submission: the opaque workspace blob
// plus the decoded program tree.
type saveRequest struct {
	Actor     string          `json:"actor"`
	Workspace string          `json:"workspace"`
	Program   json.RawMessage `json:"program"`
}

type saveResponse struct {
	Saved      bool                 `json:"saved"`
	Violations []compiler.Violation `json:"violations,omitempty"`
	Error      *compiler.Error      `json:"error,omitempty"`
}

func (s *Service) handleSave(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	guild := req.URL.Query().Get("guild")
	if guild == "" {
		http.Error(w, "no guild", http.StatusBadRequest)
		return
	}

	var sr saveRequest
	if err := json.NewDecoder(req.Body).Decode(&sr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.CanConfigure != nil && !s.CanConfigure(sr.Actor, guild) {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	reg, err := catalog.Load(s.Config.DefsDir, s.Config.Icons)
	if err != nil {
		log.Printf("blockd: catalog load: %s", err)
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}

	prog, err := compiler.ParseProgram(sr.Program)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Semantic rules first; a program that breaks them isn't saved.
	if vs := compiler.Validate(prog, reg); 0 < len(vs) {
		writeJSON(w, http.StatusUnprocessableEntity, &saveResponse{Violations: vs})
		return
	}

	bundle, err := compiler.Compile(req.Context(), prog, reg)
	if err != nil {
		if ce, is := err.(*compiler.Error); is {
			writeJSON(w, http.StatusUnprocessableEntity, &saveResponse{Error: ce})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	saved := &store.SavedProgram{
		Workspace: []byte(sr.Workspace),
		Program:   sr.Program,
	}
	if err := s.Store.WriteProgram(req.Context(), guild, saved); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.Store.WriteBundle(req.Context(), guild, bundle); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &saveResponse{Saved: true})
}

func writeJSON(w http.ResponseWriter, status int, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		log.Printf("blockd: response encode: %s", err)
	}
}
