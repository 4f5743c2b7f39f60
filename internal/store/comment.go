package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/crewdeck/internal/model"
)

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

func scanComment(scanner interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	var author model.UserRef
	err := scanner.Scan(
		&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.ParentCommentID,
		&c.CreatedAt, &c.UpdatedAt, &author.Name, &author.Email,
	)
	if err != nil {
		return nil, err
	}
	author.ID = c.AuthorID
	c.Author = &author
	return &c, nil
}

const commentCols = `c.id, c.task_id, c.author_id, c.content, c.parent_comment_id,
	c.created_at, c.updated_at, u.name, u.email`

const commentFrom = ` FROM comments c JOIN users u ON u.id = c.author_id `

func (s *CommentStore) Create(taskID, authorID int64, content string, parentCommentID *int64, mentions []int64) (*model.Comment, error) {
	result, err := s.db.Exec(
		`INSERT INTO comments (task_id, author_id, content, parent_comment_id) VALUES (?, ?, ?, ?)`,
		taskID, authorID, content, parentCommentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	for _, userID := range mentions {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO comment_mentions (comment_id, user_id) VALUES (?, ?)`,
			id, userID,
		); err != nil {
			return nil, fmt.Errorf("insert mention: %w", err)
		}
	}
	return s.GetByID(id)
}

func (s *CommentStore) GetByID(id int64) (*model.Comment, error) {
	row := s.db.QueryRow(`SELECT `+commentCols+commentFrom+`WHERE c.id = ?`, id)
	c, err := scanComment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	if err := s.populate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByTask returns top-level comments newest first, each with its
// replies attached oldest first.
func (s *CommentStore) ListByTask(taskID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT `+commentCols+commentFrom+`WHERE c.task_id = ? AND c.parent_comment_id IS NULL
			ORDER BY c.created_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range comments {
		if err := s.populate(&comments[i]); err != nil {
			return nil, err
		}
		replies, err := s.listReplies(comments[i].ID)
		if err != nil {
			return nil, err
		}
		comments[i].Replies = replies
	}
	return comments, nil
}

func (s *CommentStore) listReplies(parentID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT `+commentCols+commentFrom+`WHERE c.parent_comment_id = ? ORDER BY c.created_at`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var replies []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range replies {
		if err := s.populate(&replies[i]); err != nil {
			return nil, err
		}
	}
	return replies, nil
}

func (s *CommentStore) Update(id int64, content string) (*model.Comment, error) {
	_, err := s.db.Exec(
		`UPDATE comments SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		content, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.GetByID(id)
}

func (s *CommentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// AddReaction is idempotent per (comment, emoji, user).
func (s *CommentStore) AddReaction(commentID int64, emoji string, userID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO comment_reactions (comment_id, emoji, user_id) VALUES (?, ?, ?)`,
		commentID, emoji, userID,
	)
	if err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (s *CommentStore) RemoveReaction(commentID int64, emoji string, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM comment_reactions WHERE comment_id = ? AND emoji = ? AND user_id = ?`,
		commentID, emoji, userID,
	)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

func (s *CommentStore) populate(c *model.Comment) error {
	rows, err := s.db.Query(`SELECT user_id FROM comment_mentions WHERE comment_id = ?`, c.ID)
	if err != nil {
		return fmt.Errorf("list mentions: %w", err)
	}
	defer rows.Close()

	c.Mentions = []int64{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan mention: %w", err)
		}
		c.Mentions = append(c.Mentions, userID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	reactionRows, err := s.db.Query(
		`SELECT emoji, user_id FROM comment_reactions WHERE comment_id = ? ORDER BY emoji, user_id`,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	defer reactionRows.Close()

	c.Reactions = []model.Reaction{}
	for reactionRows.Next() {
		var emoji string
		var userID int64
		if err := reactionRows.Scan(&emoji, &userID); err != nil {
			return fmt.Errorf("scan reaction: %w", err)
		}
		if n := len(c.Reactions); n > 0 && c.Reactions[n-1].Emoji == emoji {
			c.Reactions[n-1].UserIDs = append(c.Reactions[n-1].UserIDs, userID)
		} else {
			c.Reactions = append(c.Reactions, model.Reaction{Emoji: emoji, UserIDs: []int64{userID}})
		}
	}
	return reactionRows.Err()
}
