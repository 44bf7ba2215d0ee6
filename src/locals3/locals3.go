package locals3

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/jobs"
	"github.com/opsportal/portal/src/logging"
	"github.com/opsportal/portal/src/website"
	"github.com/spf13/cobra"
)

func init() {
	s3Command := &cobra.Command{
		Use:   "locals3 [storage folder]",
		Short: "Run a local S3 server that stores attachments in the filesystem",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config.LocalS3
			if len(args) > 0 {
				cfg.Dir = args[0]
			}

			job := StartServer(cfg)

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			select {
			case <-signals:
				job.Cancel()
				<-job.Finished()
			case <-job.Finished():
			}
			return nil
		},
	}

	website.WebsiteCommand.AddCommand(s3Command)
}

/*
StartServer serves a tiny subset of the S3 API out of cfg.Dir: creating
buckets, and putting, getting and deleting objects with path-style URLs.
Presigned query parameters are accepted and ignored. It exists so the portal
can run against a real S3 client in development without any cloud account.
*/
func StartServer(cfg config.LocalS3Config) *jobs.Job {
	return jobs.Start("local s3", func(j *jobs.Job) {
		if err := os.MkdirAll(cfg.Dir, fs.ModePerm); err != nil {
			j.Logger.Error().Err(err).Str("dir", cfg.Dir).Msg("failed to create storage folder")
			return
		}

		server := http.Server{
			Addr:    cfg.Addr,
			Handler: Handler(cfg.Dir),
		}
		go func() {
			<-j.Canceled()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()

		j.Logger.Info().Str("addr", cfg.Addr).Str("dir", cfg.Dir).Msg("Serving local S3")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			j.Logger.Error().Err(err).Msg("local S3 server shut down unexpectedly")
		}
	})
}

func Handler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket, key := bucketKey(r)
		logging.Debug().Str("bucket", bucket).Str("key", key).Str("method", r.Method).Msg("local s3 request")

		if bucket == "" || strings.Contains(bucket, "..") || strings.Contains(key, "..") {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "bad bucket or key")
			return
		}
		bucketDir := filepath.Join(dir, bucket)
		objectFile := filepath.Join(bucketDir, key)

		switch {
		case r.Method == http.MethodPut && key == "":
			if err := os.MkdirAll(bucketDir, fs.ModePerm); err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
			w.Header().Set("Location", "/"+bucket)
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodPut:
			if _, err := os.Stat(bucketDir); err != nil {
				writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
				return
			}
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
				return
			}
			if err := os.WriteFile(objectFile, bodyBytes, 0644); err != nil {
				writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
				return
			}
			if contentType := r.Header.Get("Content-Type"); contentType != "" {
				os.WriteFile(objectFile+contentTypeSuffix, []byte(contentType), 0644)
			}
			w.WriteHeader(http.StatusOK)

		case (r.Method == http.MethodGet || r.Method == http.MethodHead) && key != "":
			fileBytes, err := os.ReadFile(objectFile)
			if err != nil {
				writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
				return
			}
			if contentType, err := os.ReadFile(objectFile + contentTypeSuffix); err == nil {
				w.Header().Set("Content-Type", string(contentType))
			}
			if disposition := r.URL.Query().Get("response-content-disposition"); disposition != "" {
				w.Header().Set("Content-Disposition", disposition)
			}
			w.WriteHeader(http.StatusOK)
			if r.Method == http.MethodGet {
				w.Write(fileBytes)
			}

		case r.Method == http.MethodDelete && key != "":
			os.Remove(objectFile)
			os.Remove(objectFile + contentTypeSuffix)
			w.WriteHeader(http.StatusNoContent)

		default:
			writeError(w, http.StatusNotImplemented, "NotImplemented", "Unimplemented method")
		}
	})
}

const contentTypeSuffix = ".content-type"

// Keys are flattened into a single directory per bucket.
func bucketKey(r *http.Request) (string, string) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	slashIdx := strings.IndexByte(path, '/')
	if slashIdx == -1 {
		return path, ""
	}
	return path[:slashIdx], strings.ReplaceAll(path[slashIdx+1:], "/", "~")
}

type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	xml.NewEncoder(w).Encode(s3Error{Code: code, Message: message})
}
