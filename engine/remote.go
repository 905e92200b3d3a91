package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"landbid/game"
)

// DecisionRequest is a decision sent to an agent served over HTTP.
type DecisionRequest struct {
	Player       int           `json:"player"`
	Board        game.Snapshot `json:"board"`
	Roll         game.Roll     `json:"roll"`
	Options      []game.Option `json:"options,omitempty"`
	CanReroll    bool          `json:"canReroll"`
	SearchResult []float64     `json:"searchResult,omitempty"`
	Seed         uint64        `json:"seed"`
}

// RemoteAgent forwards decisions to an agent server.
type RemoteAgent struct {
	URL    string
	Client *http.Client
}

func NewRemoteAgent(url string) *RemoteAgent {
	return &RemoteAgent{URL: url, Client: &http.Client{Timeout: time.Minute}}
}

func (a *RemoteAgent) Choose(ctx context.Context, d *game.Decision) (game.Choice, error) {
	req := DecisionRequest{
		Player:       d.Player,
		Board:        d.State.Snapshot(),
		Roll:         d.Roll,
		CanReroll:    d.CanReroll,
		SearchResult: d.SearchResult,
		Seed:         d.Rand.Uint64(),
	}
	if d.Options != nil {
		req.Options = d.Options[:]
	}

	body, err := json.Marshal(req)
	if err != nil {
		return game.Choice{}, fmt.Errorf("encode decision: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL+"/choose", bytes.NewReader(body))
	if err != nil {
		return game.Choice{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return game.Choice{}, fmt.Errorf("request move from %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return game.Choice{}, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, out)
	}

	var choice game.Choice
	if err := json.NewDecoder(resp.Body).Decode(&choice); err != nil {
		return game.Choice{}, fmt.Errorf("decode choice: %w", err)
	}
	return choice, nil
}

// AgentHandler serves agent over HTTP at POST /choose.
func AgentHandler(agent game.Agent) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /choose", func(w http.ResponseWriter, r *http.Request) {
		var req DecisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		state, err := game.Restore(req.Board)
		if err != nil {
			http.Error(w, "bad board: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Player < 0 || req.Player >= state.Players() {
			http.Error(w, "bad player", http.StatusBadRequest)
			return
		}

		d := &game.Decision{
			Player:       req.Player,
			State:        state,
			Roll:         req.Roll,
			CanReroll:    req.CanReroll,
			SearchResult: req.SearchResult,
			Rand:         game.NewRand(req.Seed),
		}
		if len(req.Options) > 0 {
			if len(req.Options) != 3 {
				http.Error(w, "need three options", http.StatusBadRequest)
				return
			}
			var options [3]game.Option
			copy(options[:], req.Options)
			d.Options = &options
		}

		choice, err := agent.Choose(r.Context(), d)
		if err != nil {
			log.Error().Err(err).Msg("agent failed to choose")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(choice); err != nil {
			http.Error(w, "failed to encode choice: "+err.Error(), http.StatusInternalServerError)
		}
	})
	return mux
}
