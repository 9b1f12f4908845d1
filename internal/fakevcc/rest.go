package fakevcc

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// listResponse 分頁列表回應
type listResponse struct {
	Entities     []json.RawMessage `json:"entities"`
	ResultsCount int               `json:"resultsCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// entitiesLocked 返回資源的所有項目，呼叫前需持有鎖
func (s *Server) entitiesLocked(resource string) []*entity {
	if resource != "scripts" {
		return s.collections[resource]
	}
	out := make([]*entity, 0, len(s.scriptOrder))
	for _, name := range s.scriptOrder {
		sc := s.scripts[name]
		raw, _ := sjson.Set(`{}`, "name", sc.name)
		raw, _ = sjson.Set(raw, "id", sc.name)
		if sc.owned {
			raw, _ = sjson.Set(raw, "owner", "SYSTEM")
		}
		out = append(out, &entity{id: sc.name, name: sc.name, raw: raw})
	}
	return out
}

// listCollection 以 limit/offset 分頁，支援 name=='x' 篩選
func (s *Server) listCollection(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	s.count("GET " + resource)

	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 100 {
		renderError(w, r, http.StatusBadRequest, "limit cannot exceed 100")
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	s.mu.Lock()
	all := s.entitiesLocked(resource)
	s.mu.Unlock()

	if f := q.Get("filter"); f != "" {
		_, value, ok := parseFilter(f)
		if !ok {
			renderError(w, r, http.StatusBadRequest, "unsupported filter "+f)
			return
		}
		var filtered []*entity
		for _, e := range all {
			if e.name == value {
				filtered = append(filtered, e)
			}
		}
		all = filtered
	}

	resp := listResponse{Entities: []json.RawMessage{}}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		resp.Entities = append(resp.Entities, json.RawMessage(all[i].raw))
	}
	resp.ResultsCount = len(resp.Entities)

	render.JSON(w, r, resp)
}

func readJSON(r *http.Request) (string, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(data) {
		return "", false
	}
	return string(data), true
}

// merge 將 patch 的頂層欄位寫入 base
func merge(base, patch string) string {
	gjson.Parse(patch).ForEach(func(key, value gjson.Result) bool {
		if updated, err := sjson.SetRaw(base, escapeKey(key.String()), value.Raw); err == nil {
			base = updated
		}
		return true
	})
	return base
}

var keyEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}

func (s *Server) getDetail(w http.ResponseWriter, r *http.Request) {
	path := "campaigns/inbound_campaigns/" + chi.URLParam(r, "id")
	s.count("GET campaigns/inbound_campaigns")

	s.mu.Lock()
	raw, ok := s.details[path]
	s.mu.Unlock()
	if !ok {
		renderError(w, r, http.StatusNotFound, "campaign not found")
		return
	}
	render.JSON(w, r, json.RawMessage(raw))
}

func (s *Server) putDetail(w http.ResponseWriter, r *http.Request) {
	path := "campaigns/inbound_campaigns/" + chi.URLParam(r, "id")
	s.count("PUT campaigns/inbound_campaigns")

	patch, ok := readJSON(r)
	if !ok {
		renderError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	raw, exists := s.details[path]
	if exists {
		s.details[path] = merge(raw, patch)
	}
	s.mu.Unlock()

	if !exists {
		renderError(w, r, http.StatusNotFound, "campaign not found")
		return
	}
	render.JSON(w, r, json.RawMessage(patch))
}

func (s *Server) putSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.count("PUT skills")

	patch, ok := readJSON(r)
	if !ok {
		renderError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	var found *entity
	for _, e := range s.collections["skills"] {
		if e.id == id {
			found = e
			break
		}
	}
	if found != nil {
		found.raw = merge(found.raw, patch)
	}
	s.mu.Unlock()

	if found == nil {
		renderError(w, r, http.StatusNotFound, "skill not found")
		return
	}
	render.JSON(w, r, json.RawMessage(found.raw))
}

// Entity 返回集合中指定 ID 的 JSON
func (s *Server) Entity(resource, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.collections[resource] {
		if e.id == id {
			return e.raw
		}
	}
	return ""
}

// createEntity 記錄建立內容並加入集合
func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	s.count("POST " + resource)

	body, ok := readJSON(r)
	if !ok {
		renderError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := gjson.Get(body, "name").String()
	if name == "" {
		renderError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	id := uuid.NewString()
	raw, _ := sjson.Set(body, "id", id)

	s.mu.Lock()
	for _, e := range s.collections[resource] {
		if e.name == name {
			s.mu.Unlock()
			renderError(w, r, http.StatusConflict, name+" already exists")
			return
		}
	}
	s.created[resource] = append(s.created[resource], body)
	s.collections[resource] = append(s.collections[resource], &entity{id: id, name: name, raw: raw})
	s.mu.Unlock()

	render.JSON(w, r, map[string]string{"id": id})
}
