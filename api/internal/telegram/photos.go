package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wasteboz/api/internal/util"
)

const (
	maxPixels     = 8_000_000
	maxPhotoBytes = 20 << 20
)

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	if msg.MediaGroupID != "" && !r.albums.first(msg.MediaGroupID) {
		return
	}
	ph := msg.Photo[len(msg.Photo)-1] // largest size
	r.scanFile(ctx, msg.Chat.ID, ph.FileID)
}

func (r *Router) acceptDocument(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Document.FileSize > maxPhotoBytes {
		r.send(msg.Chat.ID, "⚠️ That image is too large. Please send a smaller photo.")
		return
	}
	r.scanFile(ctx, msg.Chat.ID, msg.Document.FileID)
}

func (r *Router) scanFile(ctx context.Context, cid int64, fileID string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, "Could not fetch the photo. Please try again.", err)
		return
	}
	download := r.Download
	if download == nil {
		download = httpDownload
	}
	raw, err := download(ctx, url)
	if err != nil {
		r.sendError(cid, "Could not fetch the photo. Please try again.", err)
		return
	}
	data, mime, err := downscale(raw, maxPixels)
	if err != nil {
		r.sendError(cid, "Could not read the photo. Please send a JPEG or PNG.", err)
		return
	}
	r.runScan(ctx, cid, util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(data)))
}

// downscale re-encodes images above maxPx pixels as JPEG; smaller ones pass
// through untouched with their sniffed MIME.
func downscale(b []byte, maxPx int) ([]byte, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		// formats the stdlib cannot decode (heic) go to the model as is
		if m := util.SniffMimeHTTP(b); m == "image/heic" {
			return b, m, nil
		}
		return nil, "", err
	}
	total := cfg.Width * cfg.Height
	if total <= maxPx {
		return b, util.PickMIME("", "", b), nil
	}

	img, err := decodeStrict(b)
	if err != nil {
		return nil, "", err
	}
	scale := math.Sqrt(float64(maxPx) / float64(total))
	newW := max(1, int(float64(cfg.Width)*scale))
	newH := max(1, int(float64(cfg.Height)*scale))

	var out bytes.Buffer
	if err := jpeg.Encode(&out, scaleDownNN(img, newW, newH), &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", err
	}
	return out.Bytes(), "image/jpeg", nil
}

func decodeStrict(b []byte) (image.Image, error) {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return jpeg.Decode(bytes.NewReader(b))
	}
	if len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n" {
		return png.Decode(bytes.NewReader(b))
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

func scaleDownNN(src image.Image, newW, newH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	sb := src.Bounds()
	srcW := sb.Dx()
	srcH := sb.Dy()
	for y := 0; y < newH; y++ {
		sy := sb.Min.Y + (y*srcH)/newH
		for x := 0; x < newW; x++ {
			sx := sb.Min.X + (x*srcW)/newW
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

func httpDownload(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

var httpClient = &http.Client{Timeout: 60 * time.Second}
