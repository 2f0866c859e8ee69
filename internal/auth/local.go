package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long a local access token stays valid.
const DefaultSessionTTL = time.Hour

// Local authenticates against the auth_users table of the embedded SQLite
// backend. Access tokens are HS256 JWTs whose session id must still exist
// in auth_sessions, so signing out revokes them.
type Local struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
	codes  *CodeStore
	sender CodeSender
	now    func() time.Time
}

// NewLocal creates a local provider. sender delivers one-time codes.
func NewLocal(db *sql.DB, secret string, ttl time.Duration, sender CodeSender) *Local {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Local{
		db:     db,
		secret: []byte(secret),
		ttl:    ttl,
		codes:  NewCodeStore(db),
		sender: sender,
		now:    time.Now,
	}
}

type claims struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// SignUp creates a user with a bcrypt password hash and signs them in.
func (l *Local) SignUp(ctx context.Context, p SignUpParams) (*Session, error) {
	if p.Email == "" && p.Phone == "" {
		return nil, fmt.Errorf("sign up: email or phone is required")
	}
	if p.Password == "" {
		return nil, fmt.Errorf("sign up: password is required")
	}

	exists, err := l.exists(ctx, p.Email, p.Phone)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("sign up: %w", ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u, err := l.createUser(ctx, p.Email, p.Phone, string(hash), p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return l.issue(ctx, u)
}

// SignInWithPassword checks the password of the user with c's email or phone.
func (l *Local) SignInWithPassword(ctx context.Context, c Contact, password string) (*Session, error) {
	target, err := c.target()
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	u, hash, err := l.findUser(ctx, target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sign in: %w", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, fmt.Errorf("sign in: %w", ErrInvalidCredentials)
	}
	return l.issue(ctx, u)
}

// SignInWithOTP sends a code to c, creating a password-less user on first
// use.
func (l *Local) SignInWithOTP(ctx context.Context, c Contact) error {
	target, err := c.target()
	if err != nil {
		return err
	}

	_, _, err = l.findUser(ctx, target)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = l.createUser(ctx, c.Email, phoneOnly(c), "", nil)
	}
	if err != nil {
		return fmt.Errorf("sending code: %w", err)
	}

	if err := l.codes.Cleanup(ctx); err != nil {
		return err
	}
	code, err := l.codes.Create(ctx, target)
	if err != nil {
		return err
	}
	if l.sender == nil {
		return fmt.Errorf("sending code: %w", ErrUnsupported)
	}
	return l.sender.SendCode(ctx, target, code)
}

func phoneOnly(c Contact) string {
	if c.Email != "" {
		return ""
	}
	return c.Phone
}

// VerifyOTP exchanges a valid code for a session.
func (l *Local) VerifyOTP(ctx context.Context, c Contact, code string) (*Session, error) {
	target, err := c.target()
	if err != nil {
		return nil, err
	}
	if err := l.codes.Validate(ctx, target, code); err != nil {
		return nil, fmt.Errorf("verifying code: %w", err)
	}
	u, _, err := l.findUser(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("verifying code: %w", err)
	}
	return l.issue(ctx, u)
}

// OAuthURL is not available locally.
func (l *Local) OAuthURL(provider, _ string) (string, error) {
	return "", fmt.Errorf("oauth %s: %w", provider, ErrUnsupported)
}

// SignOut deletes the session behind accessToken.
func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	c, err := l.parse(accessToken)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE id = ?", c.SessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// User returns the account behind a valid, signed-in access token.
func (l *Local) User(ctx context.Context, accessToken string) (*User, error) {
	c, err := l.parse(accessToken)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	err = l.db.QueryRowContext(ctx,
		"SELECT expires_at FROM auth_sessions WHERE id = ? AND user_id = ?",
		c.SessionID, c.Subject,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: signed out", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if l.now().After(expiresAt) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}

	u, err := l.userByID(ctx, c.Subject)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (l *Local) parse(accessToken string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(accessToken, c,
		func(*jwt.Token) (any, error) { return l.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.SessionID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return c, nil
}

func (l *Local) issue(ctx context.Context, u *User) (*Session, error) {
	now := l.now().UTC()
	expiresAt := now.Add(l.ttl)
	sid := uuid.NewString()

	if _, err := l.db.ExecContext(ctx,
		"INSERT INTO auth_sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		sid, u.ID, expiresAt, now,
	); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      "authenticated",
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &Session{AccessToken: signed, ExpiresAt: expiresAt, User: *u}, nil
}

func (l *Local) exists(ctx context.Context, email, phone string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM auth_users WHERE (email != '' AND email = ?) OR (phone != '' AND phone = ?)",
		email, phone,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return n > 0, nil
}

func (l *Local) createUser(ctx context.Context, email, phone, hash string, meta map[string]any) (*User, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Phone:     phone,
		Metadata:  meta,
		CreatedAt: l.now().UTC(),
	}
	if _, err := l.db.ExecContext(ctx,
		"INSERT INTO auth_users (id, email, phone, password_hash, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Email, u.Phone, hash, string(data), u.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

const userColumns = "id, email, phone, password_hash, metadata, created_at"

// findUser looks a user up by email or phone. It returns sql.ErrNoRows
// when nobody matches.
func (l *Local) findUser(ctx context.Context, target string) (*User, string, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM auth_users WHERE (email != '' AND email = ?) OR (phone != '' AND phone = ?) LIMIT 1",
		target, target,
	)
	return scanUser(row)
}

func (l *Local) userByID(ctx context.Context, id string) (*User, error) {
	row := l.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM auth_users WHERE id = ?", id)
	u, _, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row *sql.Row) (*User, string, error) {
	var u User
	var hash string
	var meta []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &hash, &meta, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("scanning user: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &u.Metadata); err != nil {
			return nil, "", fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &u, hash, nil
}
