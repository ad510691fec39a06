// Package drive uploads stitched chapter images to Google Drive. Each
// chapter gets its own "Chapter N" folder, shared read-only by link,
// under the series folder.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUpload marks failures in the upload stage, after the chapter was
// already processed successfully.
var ErrUpload = errors.New("drive upload failed")

const folderMimeType = "application/vnd.google-apps.folder"

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
}

type Service struct {
	srv          *gdrive.Service
	log          Logger
	rootFolderID string
}

// New authenticates against Drive with an OAuth installed-app credential
// and a previously obtained token file.
func New(ctx context.Context, credentialsFile, tokenFile, rootFolderID string, log Logger) (*Service, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(creds, gdrive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	source := oauthCfg.TokenSource(ctx, token)

	// force a refresh now so an expired refresh token fails the run
	// before any scraping work happens
	fresh, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := saveToken(tokenFile, fresh); err != nil {
			log.Debugf("could not persist refreshed token: %v\n", err)
		}
	}

	srv, err := gdrive.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}

	return &Service{srv: srv, log: log, rootFolderID: rootFolderID}, nil
}

// NewWithService wraps an already built API client.
func NewWithService(srv *gdrive.Service, rootFolderID string, log Logger) *Service {
	return &Service{srv: srv, log: log, rootFolderID: rootFolderID}
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Result describes where an uploaded chapter ended up.
type Result struct {
	FolderID   string
	FolderLink string
	ReadLink   string   // first part, where reading starts
	FileLinks  []string // every uploaded part in order
	Files      int
	Bytes      int64
}

// UploadChapter puts the stitched part images into a fresh "Chapter N"
// folder under the series folder and makes the folder readable by link.
// Part images are named "Part 1.jpg", "Part 2.jpg", ... in order.
func (s *Service) UploadChapter(ctx context.Context, seriesFolderID, seriesName string, chapter int, parts [][]byte) (*Result, error) {
	parentID, err := s.seriesFolder(ctx, seriesFolderID, seriesName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	folderName := fmt.Sprintf("Chapter %d", chapter)
	folder, err := s.ensureFolder(ctx, folderName, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: chapter folder: %v", ErrUpload, err)
	}

	if err := s.shareByLink(ctx, folder.Id); err != nil {
		return nil, fmt.Errorf("%w: share folder: %v", ErrUpload, err)
	}

	result := &Result{
		FolderID:   folder.Id,
		FolderLink: folder.WebViewLink,
		Files:      len(parts),
	}

	for i, data := range parts {
		name := fmt.Sprintf("Part %d.jpg", i+1)

		file, err := s.srv.Files.Create(&gdrive.File{
			Name:    name,
			Parents: []string{folder.Id},
		}).Media(bytes.NewReader(data), googleapi.ContentType("image/jpeg")).
			Fields("id", "webViewLink").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpload, name, err)
		}

		if i == 0 {
			result.ReadLink = file.WebViewLink
		}
		result.FileLinks = append(result.FileLinks, file.WebViewLink)
		result.Bytes += int64(len(data))
		s.log.Debugf("uploaded %s (%d bytes)\n", name, len(data))
	}

	s.log.Infof("chapter %d: %d file(s) in %s\n", chapter, result.Files, folder.WebViewLink)
	return result, nil
}

// seriesFolder resolves the parent folder for a series: an explicit
// folder ID wins, otherwise a folder named after the series is found or
// created under the configured root.
func (s *Service) seriesFolder(ctx context.Context, folderID, seriesName string) (string, error) {
	if folderID != "" {
		return folderID, nil
	}

	folder, err := s.ensureFolder(ctx, seriesName, s.rootFolderID)
	if err != nil {
		return "", err
	}
	return folder.Id, nil
}

func (s *Service) ensureFolder(ctx context.Context, name, parentID string) (*gdrive.File, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := s.srv.Files.List().
		Q(query).
		Fields("files(id, webViewLink)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	if len(list.Files) > 0 {
		return list.Files[0], nil
	}

	meta := &gdrive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	folder, err := s.srv.Files.Create(meta).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, err)
	}

	s.log.Debugf("created folder %q (%s)\n", name, folder.Id)
	return folder, nil
}

func (s *Service) shareByLink(ctx context.Context, fileID string) error {
	_, err := s.srv.Permissions.Create(fileID, &gdrive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	return err
}

func escapeQuery(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
