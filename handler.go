package gsts

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gogpu/gsts/raster"
	"github.com/gogpu/gsts/shading"
	"github.com/gogpu/gsts/tile"
)

// Handler serves shading tiles over HTTP:
//
//	GET /{z}/{x}/{y}.png   the tile; 204 when there is no source tile
//	GET /info?z=&x=&y=     JSON description of the tile address
//	GET /health            liveness
type Handler struct {
	router   *mux.Router
	protocol ProtocolFunc
	weights  func(zoom int) shading.Weights
	log      func() *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler returns a Handler serving tiles from p. Failures are logged to
// the package logger.
func NewHandler(p ProtocolFunc) *Handler {
	h := &Handler{protocol: p, log: Logger}
	r := mux.NewRouter()
	r.HandleFunc("/{z:[0-9]+}/{x:-?[0-9]+}/{y:[0-9]+}.png", h.serveTile).Methods(http.MethodGet)
	r.HandleFunc("/info", h.serveInfo).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	h.router = r
	return h
}

// Handler returns an HTTP handler for the shader. The /info endpoint also
// reports the weights used at the requested zoom, and failures go to the
// shader's logger.
func (s *Shader) Handler(accelerated bool) *Handler {
	h := NewHandler(s.Protocol(accelerated))
	h.weights = s.weights.For
	h.log = s.log
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) serveTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idx, err := parseIndex(vars["z"], vars["x"], vars["y"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := h.protocol(r.Context(), idx)
	switch {
	case errors.Is(err, ErrNoTile):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, ErrCanceled):
		http.Error(w, "canceled", http.StatusServiceUnavailable)
		return
	case err != nil:
		h.log().Error("gsts: tile failed", "tile", idx.String(), "err", err)
		http.Error(w, "failed to generate tile", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf, img); err != nil {
		http.Error(w, "failed to encode tile", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

type tileInfo struct {
	Z       int              `json:"z"`
	X       int              `json:"x"`
	Y       int              `json:"y"`
	Valid   bool             `json:"valid"`
	Bounds  *[4]float64      `json:"bounds,omitempty"` // west, south, east, north
	Weights *shading.Weights `json:"weights,omitempty"`
}

func (h *Handler) serveInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	idx, err := parseIndex(q.Get("z"), q.Get("x"), q.Get("y"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	idx = idx.Wrap()

	info := tileInfo{Z: idx.Z, X: idx.X, Y: idx.Y, Valid: idx.Valid()}
	if mt, ok := idx.MapTile(); ok {
		b := mt.Bound()
		info.Bounds = &[4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
		if h.weights != nil {
			wt := h.weights(idx.Z)
			info.Weights = &wt
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

var errBadIndex = errors.New("gsts: z, x and y must be integers")

func parseIndex(zs, xs, ys string) (tile.Index, error) {
	z, errZ := strconv.Atoi(zs)
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errZ != nil || errX != nil || errY != nil {
		return tile.Index{}, errBadIndex
	}
	return tile.Index{Z: z, X: x, Y: y}, nil
}
