package handlers

import (
	"net/http"

	"rpgchat/models"
	"rpgchat/rules"
)

type CharacterRequest struct {
	SessionID string `json:"session_id"`
	models.CharacterDraft
}

type ItemRequest struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
}

type EffectRequest struct {
	SessionID string              `json:"session_id"`
	Effect    models.ActiveEffect `json:"effect"`
}

type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RulesResponse struct {
	Races   []CatalogEntry `json:"races"`
	Classes []CatalogEntry `json:"classes"`
	Items   []CatalogEntry `json:"items"`
}

// CreateCharacter submits the character-creation form. An existing character
// for the conversation wins over the draft.
func (h *Handler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req CharacterRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	draft := req.CharacterDraft
	sheet, err := s.EnsureCharacter(r.Context(), &draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req ItemRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	sheet, err := s.AddItem(r.Context(), req.ItemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (h *Handler) AddEffect(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req EffectRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	sheet, err := s.AddEffect(r.Context(), req.Effect)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// Rules lists the races, classes and items a character can be built from.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	var resp RulesResponse
	for _, id := range rules.RaceIDs() {
		race, _ := rules.Race(id)
		resp.Races = append(resp.Races, CatalogEntry{ID: id, Name: race.Name})
	}
	for _, id := range rules.ClassIDs() {
		class, _ := rules.Class(id)
		resp.Classes = append(resp.Classes, CatalogEntry{ID: id, Name: class.Name})
	}
	for _, id := range rules.ItemIDs() {
		item, _ := rules.Item(id)
		resp.Items = append(resp.Items, CatalogEntry{ID: id, Name: item.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}
