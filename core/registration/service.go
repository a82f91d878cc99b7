package registration

import (
	"context"
	"errors"
	"strings"

	"VTube/logger"
	"VTube/model"
	"VTube/repository"
	"VTube/storage"
)

var errRecordVanished = errors.New("user record not found after insert")

// MediaUploader is the part of the media adapter the orchestrator needs.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (*storage.UploadResult, error)
	Delete(ctx context.Context, deletionRef string) bool
}

// PasswordHasher turns a plaintext password into a stored digest.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Input is one registration request. File paths point at locally staged uploads;
// an empty path means the file was not provided.
type Input struct {
	Fullname       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// Service registers users: it validates input, uploads profile images, persists the
// record and undoes the uploads when a later step fails.
type Service struct {
	users  repository.UserRepository
	media  MediaUploader
	hasher PasswordHasher
}

// NewService creates a registration Service.
func NewService(users repository.UserRepository, media MediaUploader, hasher PasswordHasher) *Service {
	return &Service{users: users, media: media, hasher: hasher}
}

// attempt carries the state of one Register call from stage to stage.
type attempt struct {
	in       Input
	fullname string
	username string
	email    string

	avatar     *storage.UploadResult
	coverImage *storage.UploadResult

	user *model.User
}

// uploads returns the assets this attempt has put on the media host, in upload order.
func (a *attempt) uploads() []*storage.UploadResult {
	var out []*storage.UploadResult
	if a.avatar != nil {
		out = append(out, a.avatar)
	}
	if a.coverImage != nil {
		out = append(out, a.coverImage)
	}
	return out
}

type stage struct {
	name string
	run  func(ctx context.Context, a *attempt) error
}

// Register runs the registration pipeline. On success the returned user carries no
// password or refresh token. On failure the error is a *Error and every asset uploaded
// during this call has been deleted again.
func (s *Service) Register(ctx context.Context, in Input) (*model.User, error) {
	a := &attempt{in: in}
	stages := []stage{
		{"validate", s.validate},
		{"check_conflict", s.checkConflict},
		{"require_avatar", s.requireAvatar},
		{"upload_avatar", s.uploadAvatar},
		{"upload_cover_image", s.uploadCoverImage},
		{"persist", s.persist},
	}

	for _, st := range stages {
		if err := st.run(ctx, a); err != nil {
			s.compensate(ctx, a)
			logger.Warn("[Register] registration failed",
				logger.String("stage", st.name),
				logger.String("username", a.username),
				logger.ErrorField(err))
			return nil, err
		}
	}

	logger.Info("[Register] user registered",
		logger.Int64("userID", a.user.ID),
		logger.String("username", a.user.Username))
	return a.user, nil
}

func (s *Service) validate(ctx context.Context, a *attempt) error {
	a.fullname = strings.TrimSpace(a.in.Fullname)
	a.username = strings.ToLower(strings.TrimSpace(a.in.Username))
	a.email = strings.ToLower(strings.TrimSpace(a.in.Email))

	if a.fullname == "" || a.username == "" || a.email == "" || strings.TrimSpace(a.in.Password) == "" {
		return newError(ErrValidation, "All fields are required", nil)
	}
	return nil
}

func (s *Service) checkConflict(ctx context.Context, a *attempt) error {
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, a.username, a.email)
	if err != nil {
		return newError(ErrPersistence, "Something went wrong while registering user", err)
	}
	if exists {
		return newError(ErrConflict, "Username or email already exists", nil)
	}
	return nil
}

func (s *Service) requireAvatar(ctx context.Context, a *attempt) error {
	if a.in.AvatarPath == "" {
		return newError(ErrValidation, "Avatar file is required", nil)
	}
	return nil
}

func (s *Service) uploadAvatar(ctx context.Context, a *attempt) error {
	res, err := s.media.Upload(ctx, a.in.AvatarPath)
	if err != nil {
		return newError(ErrUpload, "Failed to upload avatar", err)
	}
	a.avatar = res
	return nil
}

func (s *Service) uploadCoverImage(ctx context.Context, a *attempt) error {
	if a.in.CoverImagePath == "" {
		logger.Debug("[Register] no cover image provided", logger.String("username", a.username))
		return nil
	}
	res, err := s.media.Upload(ctx, a.in.CoverImagePath)
	if err != nil {
		return newError(ErrUpload, "Failed to upload cover image", err)
	}
	a.coverImage = res
	return nil
}

// persist inserts the user and reads it back inside one transaction, so a failed
// read-back leaves no row pointing at media that is about to be deleted.
func (s *Service) persist(ctx context.Context, a *attempt) error {
	digest, err := s.hasher.Hash(a.in.Password)
	if err != nil {
		return newError(ErrPersistence, "Something went wrong while registering user", err)
	}

	user := &model.User{
		Fullname:     a.fullname,
		Username:     a.username,
		Email:        a.email,
		Password:     digest,
		Avatar:       a.avatar.URL,
		WatchHistory: model.RefList{},
	}
	if a.coverImage != nil {
		user.CoverImage = a.coverImage.URL
	}

	err = s.users.Transaction(ctx, func(tx repository.UserRepository) error {
		if err := tx.Create(ctx, user); err != nil {
			return err
		}
		created, err := tx.FindPublicByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if created == nil {
			return errRecordVanished
		}
		a.user = created
		return nil
	})
	if err != nil {
		a.user = nil
		if errors.Is(err, repository.ErrDuplicateUser) {
			return newError(ErrConflict, "Username or email already exists", err)
		}
		return newError(ErrPersistence, "Something went wrong while registering user", err)
	}
	return nil
}

// compensate deletes every asset uploaded during the attempt. Deletion is best-effort:
// the adapter logs its own failures and the stage error is what the caller sees.
// It runs detached from ctx so a cancelled request still cleans up.
func (s *Service) compensate(ctx context.Context, a *attempt) {
	uploads := a.uploads()
	if len(uploads) == 0 {
		return
	}
	cleanupCtx := context.WithoutCancel(ctx)
	for _, u := range uploads {
		if !s.media.Delete(cleanupCtx, u.DeletionRef) {
			logger.Error("[Register] compensating delete failed, asset may be orphaned",
				logger.String("ref", u.DeletionRef),
				logger.String("url", u.URL))
		}
	}
}
