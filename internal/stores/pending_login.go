package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingLoginRecordVersion1 = 1
)

var (
	ErrPendingLoginNotFound = errors.New("pending login not found")
	ErrPendingLoginExpired  = errors.New("pending login expired")
	ErrPendingLoginBackend  = errors.New("pending login backend unavailable")
)

// PendingLogin is the server-side half of a temporary token: it exists from a
// successful password check until the wallet signature step completes.
type PendingLogin struct {
	UserID    string
	ExpiresAt int64
	Attempts  uint16
}

// PendingLoginStore keeps PendingLogin records in Redis keyed by token id.
type PendingLoginStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewPendingLoginStore(redisClient redis.UniversalClient, prefix string) *PendingLoginStore {
	if prefix == "" {
		prefix = "cpl"
	}
	return &PendingLoginStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *PendingLoginStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

func (s *PendingLoginStore) Save(
	ctx context.Context,
	tokenID string,
	record *PendingLogin,
	ttl time.Duration,
) error {
	encoded, err := encodePendingLogin(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(tokenID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingLoginBackend, err)
	}
	return nil
}

func (s *PendingLoginStore) Get(ctx context.Context, tokenID string) (*PendingLogin, error) {
	data, err := s.redis.Get(ctx, s.key(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingLoginNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPendingLoginBackend, err)
	}

	record, err := decodePendingLogin(data)
	if err != nil {
		return nil, err
	}
	if s.now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(tokenID)).Result()
		return nil, ErrPendingLoginExpired
	}
	return record, nil
}

// Delete removes the record and reports whether this call removed it. A false
// result on a record that was just read means another request consumed it.
func (s *PendingLoginStore) Delete(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPendingLoginBackend, err)
	}
	return n > 0, nil
}

// RecordFailure counts a failed signature. When the count reaches maxAttempts
// the record is removed and exceeded is true.
func (s *PendingLoginStore) RecordFailure(
	ctx context.Context,
	tokenID string,
	maxAttempts int,
) (bool, error) {
	const maxRetries = 4
	key := s.key(tokenID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePendingLogin(data)
			if err != nil {
				return err
			}

			ttl := time.Unix(record.ExpiresAt, 0).Sub(s.now())
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrPendingLoginExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			updated, err := encodePendingLogin(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrPendingLoginNotFound
			}
			if errors.Is(err, ErrPendingLoginExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrPendingLoginBackend, err)
		}
		return exceeded, nil
	}

	return false, ErrPendingLoginNotFound
}

func encodePendingLogin(record *PendingLogin) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(pendingLoginRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if len(record.UserID) > 65535 {
		return nil, errors.New("pending login user id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodePendingLogin(data []byte) (*PendingLogin, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pendingLoginRecordVersion1 {
		return nil, errors.New("invalid pending login version")
	}

	record := &PendingLogin{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.UserID = string(user)

	return record, nil
}
