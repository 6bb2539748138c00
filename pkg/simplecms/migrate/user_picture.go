package migrate

import (
	"context"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
)

// UserPictureSourceID is the plugin id of the user picture source.
const UserPictureSourceID = "d6_user_picture"

// UserPictureSource lists users that uploaded a picture, oldest access
// first.
type UserPictureSource struct {
	db *DB
}

// NewUserPictureSource builds the source.
func NewUserPictureSource(m *Migration, db *DB) (Source, error) {
	return &UserPictureSource{db: db}, nil
}

func (s *UserPictureSource) Provider() string { return "user" }

func (s *UserPictureSource) Fields() map[string]string {
	return map[string]string{
		"uid":     "Primary Key: Unique user ID.",
		"access":  "Timestamp for previous time user accessed the site.",
		"picture": "Path to the user's uploaded picture.",
	}
}

func (s *UserPictureSource) IDs() []IDField {
	return []IDField{{Name: "uid", Type: "integer"}}
}

func (s *UserPictureSource) where(sb *sqlbuilder.SelectBuilder) {
	sb.Where(sb.NotEqual("picture", ""), sb.IsNotNull("picture"))
}

func (s *UserPictureSource) Rows(ctx context.Context) ([]*Row, error) {
	sb := s.db.Select("uid", "access", "picture").From("users")
	s.where(sb)
	sb.OrderBy("access").Asc()
	query, args := sb.Build()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user pictures: %w", err)
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		var uid, access int
		var picture string
		if err := rows.Scan(&uid, &access, &picture); err != nil {
			return nil, fmt.Errorf("scan user picture: %w", err)
		}
		out = append(out, NewRow(map[string]any{
			"uid":     uid,
			"access":  access,
			"picture": picture,
		}, s.IDs()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query user pictures: %w", err)
	}
	return out, nil
}

func (s *UserPictureSource) Count(ctx context.Context) (int, error) {
	return s.db.count(ctx, "users", s.where)
}
