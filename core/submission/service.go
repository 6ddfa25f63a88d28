package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gymhub/contentdesk/core"
	"github.com/gymhub/contentdesk/core/format"
	"github.com/gymhub/contentdesk/core/gym"
)

// sniffLen is the number of leading bytes read to detect a file's MIME type.
const sniffLen = 3072

// maxParallelUploads bounds the object store calls of one batch.
const maxParallelUploads = 4

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("submission not found")
	ErrNotPending = errors.New("submission is not pending review")
	errNoFiles    = core.NewValidationError(nil, core.FieldError{Field: "files", Error: "select at least one file"})
)

type (
	Repository interface {
		// CreateSubmissions inserts subs in one transaction. If supersededID is set, that submission
		// is marked superseded in the same transaction.
		CreateSubmissions(ctx context.Context, scope core.Scope, subs []Submission, supersededID string) ([]Submission, error)
		GetSubmission(ctx context.Context, scope core.Scope, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Submission, error)
		// ReviewSubmission stores the review of s if it is still pending, ErrNotPending otherwise.
		ReviewSubmission(ctx context.Context, scope core.Scope, s Submission) (Submission, error)
	}

	FormatFinder interface {
		Get(ctx context.Context, id string) (format.Format, error)
		Query(ctx context.Context, filter *format.QueryFilter) ([]format.Format, error)
	}

	GymFinder interface {
		Get(ctx context.Context, scope core.Scope, id string) (gym.Gym, error)
	}

	Service interface {
		// UploadBatch stores files in the object store in parallel then records them as pending
		// submissions of formatID. If any upload fails, nothing is recorded and a *BatchError is returned.
		UploadBatch(ctx context.Context, scope core.Scope, formatID string, files []File) ([]Submission, error)
		// Resubmit uploads file as the replacement of submission id.
		Resubmit(ctx context.Context, scope core.Scope, id string, file File) (Submission, error)
		Get(ctx context.Context, scope core.Scope, id string) (Submission, error)
		Query(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Submission, error)
		Review(ctx context.Context, scope core.Scope, id string, rs ReviewSubmission) (Submission, error)
		// Progress returns gymID's progress on every catalog format. An empty gymID is the scope's gym.
		Progress(ctx context.Context, scope core.Scope, gymID string) ([]FormatProgress, error)
	}

	Deps struct {
		Repo    Repository
		Formats FormatFinder
		Gyms    GymFinder
		Store   core.ObjectStore
		Mailer  core.EmailService
		Logger  core.Logger
		Conf    *core.Config
	}

	service struct {
		Deps
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(deps Deps) Service {
	return &service{Deps: deps}
}

func (svc *service) UploadBatch(ctx context.Context, scope core.Scope, formatID string, files []File) ([]Submission, error) {
	if err := requireGym(scope); err != nil {
		return nil, err
	}
	f, err := svc.Formats.Get(ctx, formatID)
	if err != nil {
		return nil, errors.Wrap(err, "finding format")
	}
	return svc.upload(ctx, scope, f, files, "")
}

func (svc *service) Resubmit(ctx context.Context, scope core.Scope, id string, file File) (Submission, error) {
	if err := requireGym(scope); err != nil {
		return Submission{}, err
	}
	prev, err := svc.Repo.GetSubmission(ctx, scope, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding submission")
	}
	if prev.GymID != scope.GymID {
		return Submission{}, core.NewAuthorizationError("only the submitting gym can resubmit")
	}
	if !prev.Resubmittable() {
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "only submissions needing revision or rejected can be resubmitted",
		})
	}
	f, err := svc.Formats.Get(ctx, prev.FormatID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding format")
	}
	subs, err := svc.upload(ctx, scope, f, []File{file}, prev.ID)
	if err != nil {
		return Submission{}, err
	}
	return subs[0], nil
}

// upload validates files, stores them all, then records them in one transaction.
func (svc *service) upload(ctx context.Context, scope core.Scope, f format.Format, files []File, replacesID string) ([]Submission, error) {
	if len(files) == 0 {
		return nil, errNoFiles
	}
	if err := svc.checkFiles(f, files); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	subs := make([]Submission, len(files))
	results := make([]FileResult, len(files))
	for i, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		subs[i] = Submission{
			ID:          uuid.New().String(),
			FormatID:    f.ID,
			GymID:       scope.GymID,
			FileName:    path.Base(filepath.ToSlash(file.Name)),
			FilePath:    path.Join(scope.GymID, f.Key, uuid.New().String()+ext),
			Status:      StatusPending,
			ReplacesID:  replacesID,
			SubmittedAt: now,
		}
		results[i] = FileResult{FileName: subs[i].FileName, FilePath: subs[i].FilePath}
	}

	// every file is attempted; the batch fails if any of them did
	var g errgroup.Group
	g.SetLimit(maxParallelUploads)
	for i := range files {
		i := i
		g.Go(func() error {
			fileType, err := svc.store(ctx, files[i], subs[i].FilePath)
			if err != nil {
				results[i].Error = err.Error()
				return errors.Wrapf(err, "uploading %s", files[i].Name)
			}
			subs[i].FileType = fileType
			subs[i].FileURL = svc.Store.PublicURL(subs[i].FilePath)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if svc.Logger != nil {
			svc.Logger.Error("batch upload failed", err, "gym_id", scope.GymID, "format_id", f.ID)
		}
		return nil, &BatchError{Results: results, err: core.NewUpstreamError("uploading files", err)}
	}

	subs, err := svc.Repo.CreateSubmissions(ctx, scope, subs, replacesID)
	if err != nil {
		return nil, errors.Wrap(err, "recording submissions")
	}
	return subs, nil
}

func (svc *service) checkFiles(f format.Format, files []File) error {
	var msgs []string
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name))
		switch {
		case strings.TrimSpace(file.Name) == "":
			msgs = append(msgs, "a file has no name")
		case !f.AllowsExtension(ext, svc.Conf.Uploads):
			msgs = append(msgs, fmt.Sprintf(
				"%s: %q files are not accepted for %s formats (allowed: %s)",
				file.Name, ext, f.Type, strings.Join(f.AllowedExtensions(svc.Conf.Uploads), " ")))
		case file.Size <= 0:
			msgs = append(msgs, fmt.Sprintf("%s: file is empty", file.Name))
		case svc.Conf.Uploads.MaxFileSize > 0 && file.Size > svc.Conf.Uploads.MaxFileSize:
			msgs = append(msgs, fmt.Sprintf("%s: file exceeds %d bytes", file.Name, svc.Conf.Uploads.MaxFileSize))
		}
	}
	if len(msgs) > 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: strings.Join(msgs, "; ")})
	}
	return nil
}

// store sniffs the content type of file and writes it to the object store under p.
func (svc *service) store(ctx context.Context, file File, p string) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer func() { _ = rc.Close() }()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, "reading file")
	}
	head = head[:n]
	fileType := mimetype.Detect(head).String()

	// multipart files rewind, so the store can retry without buffering them
	var body io.Reader = io.MultiReader(bytes.NewReader(head), rc)
	if rs, ok := rc.(io.ReadSeeker); ok {
		if _, err = rs.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrap(err, "rewinding file")
		}
		body = rs
	}

	if err = svc.Store.Upload(ctx, p, body, fileType); err != nil {
		return "", err
	}
	return fileType, nil
}

func (svc *service) Get(ctx context.Context, scope core.Scope, id string) (Submission, error) {
	if err := scope.Check(); err != nil {
		return Submission{}, err
	}
	return svc.Repo.GetSubmission(ctx, scope, id)
}

func (svc *service) Query(ctx context.Context, scope core.Scope, filter *QueryFilter) ([]Submission, error) {
	if err := scope.Check(); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.Repo.QuerySubmissions(ctx, scope, filter)
}

func (svc *service) Review(ctx context.Context, scope core.Scope, id string, rs ReviewSubmission) (Submission, error) {
	if err := scope.RequireAdmin(); err != nil {
		return Submission{}, err
	}
	switch rs.Status {
	case StatusApproved, StatusNeedsRevision, StatusRejected:
	default:
		return Submission{}, core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "must be one of [approved needs_revision rejected]",
		})
	}

	s, err := svc.Repo.GetSubmission(ctx, scope, id)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding submission")
	}
	if s.Status != StatusPending || s.Superseded {
		return Submission{}, core.NewValidationError(ErrNotPending, core.FieldError{Field: "status", Error: ErrNotPending.Error()})
	}

	now := time.Now().UTC()
	s.Status = rs.Status
	s.FeedbackNotes = rs.FeedbackNotes
	s.ReviewedAt = &now
	s, err = svc.Repo.ReviewSubmission(ctx, scope, s)
	if err != nil {
		if errors.Cause(err) == ErrNotPending {
			return Submission{}, core.NewValidationError(ErrNotPending, core.FieldError{Field: "status", Error: ErrNotPending.Error()})
		}
		return Submission{}, errors.Wrap(err, "reviewing submission")
	}
	svc.notifyReviewed(ctx, scope, s)
	return s, nil
}

func (svc *service) notifyReviewed(ctx context.Context, scope core.Scope, s Submission) {
	if svc.Mailer == nil || svc.Gyms == nil {
		return
	}
	g, err := svc.Gyms.Get(ctx, scope, s.GymID)
	if err != nil || g.Email == "" {
		return
	}
	var formatTitle string
	if f, err := svc.Formats.Get(ctx, s.FormatID); err == nil {
		formatTitle = f.Title
	}
	svc.Mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: g.Name, Address: g.Email}},
		Subject:      fmt.Sprintf("Your upload %s was reviewed", s.FileName),
		TemplateName: "submission_reviewed",
		TemplateData: map[string]interface{}{
			"GymName":  g.Name,
			"FileName": s.FileName,
			"Format":   formatTitle,
			"Status":   strings.ReplaceAll(s.Status, "_", " "),
			"Notes":    s.FeedbackNotes,
		},
	})
}

func (svc *service) Progress(ctx context.Context, scope core.Scope, gymID string) ([]FormatProgress, error) {
	if gymID == "" {
		gymID = scope.GymID
	}
	if err := scope.RequireAccess(gymID); err != nil {
		return nil, err
	}

	formats, err := svc.Formats.Query(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying formats")
	}
	subs, err := svc.Repo.QuerySubmissions(ctx, scope, &QueryFilter{GymID: gymID})
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	out := make([]FormatProgress, 0, len(formats))
	for _, f := range formats {
		p := Aggregate(gymID, f.ID, subs)
		out = append(out, FormatProgress{
			Progress:      p,
			FormatKey:     f.Key,
			FormatTitle:   f.Title,
			FormatType:    f.Type,
			TotalRequired: f.TotalRequired,
			Percentage:    UploadProgress(p.CompletedCount, f.TotalRequired),
		})
	}
	return out, nil
}

func requireGym(scope core.Scope) error {
	if err := scope.Check(); err != nil {
		return err
	}
	if scope.GymID == "" {
		return core.NewAuthorizationError("uploads require a gym session")
	}
	return nil
}
