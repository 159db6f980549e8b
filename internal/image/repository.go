package image

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const listQuery = `
	SELECT i.id, i.src, i.name, u.id, u.username
	FROM images i
	LEFT JOIN users u ON u.id = i.author_id
`

// List returns every image with its author resolved, newest first. Images
// whose author row is gone keep a placeholder author.
func (r *Repository) List(ctx context.Context) ([]APIImage, error) {
	rows, err := r.db.QueryContext(ctx, listQuery+`ORDER BY i.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// Search returns images whose name contains the substring, newest first.
func (r *Repository) Search(ctx context.Context, substring string) ([]APIImage, error) {
	rows, err := r.db.QueryContext(ctx, listQuery+`
		WHERE POSITION($1 IN i.name) > 0
		ORDER BY i.created_at DESC
	`, substring)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

func scanImages(rows *sql.Rows) ([]APIImage, error) {
	images := make([]APIImage, 0)
	for rows.Next() {
		var img APIImage
		var authorID, authorName sql.NullString
		if err := rows.Scan(&img.ID, &img.Src, &img.Name, &authorID, &authorName); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.Author = Author{ID: authorID.String, Username: authorName.String}
		if !authorName.Valid {
			img.Author.Username = "Unknown"
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return images, nil
}

// AuthorID returns the owner of an image, or sql.ErrNoRows when the image
// does not exist.
func (r *Repository) AuthorID(ctx context.Context, id string) (string, error) {
	var authorID string
	err := r.db.QueryRowContext(ctx, `
		SELECT author_id
		FROM images
		WHERE id = $1
	`, id).Scan(&authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("query image author: %w", err)
	}

	return authorID, nil
}

// UpdateName renames an image and reports how many rows matched, so the
// handler can distinguish a vanished image from a successful rename.
func (r *Repository) UpdateName(ctx context.Context, id, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE images
		SET name = $2, updated_at = $3
		WHERE id = $1
	`, id, name, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update image name: %w", err)
	}

	matched, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("image rename rows affected: %w", err)
	}

	return matched, nil
}

// Create inserts a new image owned by authorID.
func (r *Repository) Create(ctx context.Context, src, name, authorID string) (Image, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Image{}, fmt.Errorf("generate image id: %w", err)
	}

	now := time.Now().UTC()
	img := Image{
		ID:        id.String(),
		Src:       src,
		Name:      name,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO images (id, src, name, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, img.ID, img.Src, img.Name, img.AuthorID, img.CreatedAt, img.UpdatedAt); err != nil {
		return Image{}, fmt.Errorf("insert image: %w", err)
	}

	return img, nil
}

// ReferencedSrcs returns the set of src values currently referenced by any
// image row. The maintenance sweep uses it to spot orphaned upload files.
func (r *Repository) ReferencedSrcs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT src FROM images`)
	if err != nil {
		return nil, fmt.Errorf("query image srcs: %w", err)
	}
	defer rows.Close()

	srcs := make(map[string]struct{})
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan image src: %w", err)
		}
		srcs[src] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image srcs: %w", err)
	}

	return srcs, nil
}
