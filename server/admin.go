package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Handler 管理与监控接口，以及 WebSocket 接入
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/admin/state", s.HandleAdminState)
	mux.HandleFunc("/admin/cheat", s.HandleAdminCheat)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供配置的读取与更新（目前只支持热更新 Tick 频率）
// GET /admin/config   返回当前配置
// POST /admin/config  {"tickRate":60}
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, err := s.room.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{
			"port":              s.cfg.Port,
			"tickRate":          snap.TickRate,
			"connectionTimeout": s.cfg.ConnectionTimeout.String(),
			"heartbeatInterval": s.cfg.HeartbeatInterval.String(),
			"writeTimeout":      s.cfg.WriteTimeout.String(),
			"sendQueue":         s.cfg.SendQueue,
			"levels":            s.catalog.Len(),
			"enableCheats":      s.cfg.Debug.EnableCheats,
		})
	case http.MethodPost:
		var body struct {
			TickRate *int `json:"tickRate,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.TickRate != nil {
			err := s.room.SetTickRate(r.Context(), *body.TickRate)
			if errors.Is(err, ErrBadTickRate) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminState 大厅、阶段与当前 GameState
func (s *Server) HandleAdminState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.room.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

// HandleAdminCheat 调试用：强制双方到达出口（需 debug.enableCheats）
// POST /admin/cheat
func (s *Server) HandleAdminCheat(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Debug.EnableCheats {
		http.Error(w, "cheats disabled", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out, err := s.room.ForceExit(r.Context())
	if errors.Is(err, ErrNoMatch) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"outcome": out.String()})
}

// HandleMetrics 输出房间运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"metrics": s.metrics.Snapshot(),
	}
	if snap, err := s.room.Snapshot(r.Context()); err == nil {
		payload["phase"] = snap.Phase
		if snap.State != nil {
			payload["tick"] = snap.State.Tick
			payload["level"] = snap.State.Level
		}
	}
	writeJSON(w, payload)
}
