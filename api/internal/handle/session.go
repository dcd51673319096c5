package handle

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"wasteboz/api/internal/util"
)

type SearchRequest struct {
	Query string `json:"query"`
}

type ScanRequest struct {
	Image string `json:"image"`
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handle) Session(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	writeJSON(w, http.StatusOK, h.sessions.Get(key).Snapshot())
}

func (h *Handle) Search(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)

	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	ctrl := h.sessions.Get(key)
	if strings.TrimSpace(req.Query) == "" {
		writeState(w, ctrl.Snapshot(), false)
		return
	}
	if !h.sessions.Allow(key) {
		writeError(w, http.StatusTooManyRequests, "too many searches, slow down")
		return
	}

	h.log.WithFields(logrus.Fields{"session": key, "query": util.Truncate(req.Query, 80)}).Debug("search")
	s, applied := ctrl.SubmitText(r.Context(), req.Query)
	writeState(w, s, applied)
}

// Scan accepts either a JSON body with a data URL or a multipart upload in
// the "image" field.
func (h *Handle) Scan(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)

	image, err := readImage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctrl := h.sessions.Get(key)
	if image == "" {
		writeState(w, ctrl.Snapshot(), false)
		return
	}
	if !h.sessions.Allow(key) {
		writeError(w, http.StatusTooManyRequests, "too many searches, slow down")
		return
	}

	h.log.WithFields(logrus.Fields{"session": key, "bytes": len(image)}).Debug("scan")
	s, applied := ctrl.SubmitImage(r.Context(), image)
	writeState(w, s, applied)
}

func (h *Handle) Reset(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	writeJSON(w, http.StatusOK, h.sessions.Get(key).Reset())
}

func (h *Handle) DismissError(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(w, r)
	writeJSON(w, http.StatusOK, h.sessions.Get(key).DismissError())
}

func readImage(w http.ResponseWriter, r *http.Request) (string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		var req ScanRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return "", errors.New("bad json: " + err.Error())
		}
		return strings.TrimSpace(req.Image), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return "", errors.New("bad multipart body: " + err.Error())
	}
	f, fh, err := r.FormFile("image")
	if err != nil {
		return "", errors.New(`multipart field "image" is required`)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", errors.New("read upload: " + err.Error())
	}
	if len(data) > maxImageBytes {
		return "", errors.New("image too large")
	}
	if len(data) == 0 {
		return "", nil
	}
	mimeType := util.PickMIME("", imageContentType(fh.Header.Get("Content-Type")), data)
	return util.MakeDataURL(mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

// imageContentType keeps a part's declared type only when it names an image.
func imageContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return ""
	}
	return mt
}
