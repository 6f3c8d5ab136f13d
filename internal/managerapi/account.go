// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package managerapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/sec"
	"github.com/taibuivan/popgate/internal/platform/validate"
	"github.com/taibuivan/popgate/internal/session"
)

const (
	messageBadCredentials = "이메일 또는 비밀번호를 확인해주세요."
	messageNoToken        = "토큰 발급에 실패했습니다."
	messageEmailRequired  = "이메일을 입력해주세요."
	messageEmailInvalid   = "올바른 이메일 형식이 아닙니다."
	messagePasswordNeeded = "비밀번호를 입력해주세요."
	messagePasswordMatch  = "비밀번호가 일치하지 않습니다."
	messageNameRequired   = "이름을 입력해주세요."
)

// # Login

// Login exchanges credentials for a session and persists it.
//
// A successful login re-arms the session-expired handler and clears any
// refresh denial left by the previous session.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var v validate.Validator
	v.Required("email", email, messageEmailRequired).
		Email("email", email, messageEmailInvalid).
		Required("password", password, messagePasswordNeeded)
	if err := v.Err(); err != nil {
		return nil, err
	}

	result, err := c.Request(ctx, constants.PathLogin, RequestOptions{
		Method:   http.MethodPost,
		Body:     map[string]string{"email": email, "password": password},
		SkipAuth: true,
	})
	if err != nil {
		if failure := apperr.As(err); failure != nil && apperr.IsAuthRejection(err) {
			return nil, &apperr.AppError{
				Status:  failure.Status,
				Message: messageBadCredentials,
				Payload: failure.Payload,
				Cause:   err,
			}
		}
		return nil, err
	}

	token := stringField(result, constants.FieldToken, constants.FieldAccessToken)
	if token == "" {
		return nil, apperr.New(http.StatusInternalServerError, messageNoToken, result)
	}

	created := session.Session{
		AccessToken:  token,
		RefreshToken: stringField(result, constants.FieldRefreshToken),
		User:         session.UserFromToken(token, &session.User{Email: email}),
	}
	if err := c.store.Save(ctx, created); err != nil {
		return nil, fmt.Errorf("managerapi: save session: %w", err)
	}

	c.refresher.Reset()
	c.expired.Store(false)

	return &created, nil
}

// Logout forgets the session locally. The API has no logout endpoint.
func (c *Client) Logout(ctx context.Context) error {
	c.refresher.Reset()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("managerapi: clear session: %w", err)
	}
	return nil
}

// # Signup

// SignupInput is the owner/manager registration form.
type SignupInput struct {
	Email         string
	Password      string
	PasswordCheck string
	Name          string

	// Phone may contain dashes; they are stripped before sending.
	Phone string

	// Role defaults to OWNER.
	Role sec.Role
}

type signupBody struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	PasswordCheck string  `json:"passwordCheck"`
	Name          string  `json:"name"`
	Phone         *string `json:"phone"`
	Role          string  `json:"role"`
}

// Signup registers a new account. It does not sign in.
func (c *Client) Signup(ctx context.Context, input SignupInput) (any, error) {
	var v validate.Validator
	v.Required("email", input.Email, messageEmailRequired).
		Email("email", input.Email, messageEmailInvalid).
		Required("password", input.Password, messagePasswordNeeded).
		Custom("passwordCheck", input.PasswordCheck != "" && input.PasswordCheck != input.Password, messagePasswordMatch).
		Required("name", input.Name, messageNameRequired)
	if err := v.Err(); err != nil {
		return nil, err
	}

	body := signupBody{
		Email:         input.Email,
		Password:      input.Password,
		PasswordCheck: input.PasswordCheck,
		Name:          input.Name,
		Role:          string(input.Role),
	}
	if body.Role == "" {
		body.Role = string(sec.RoleOwner)
	}
	if phone := strings.ReplaceAll(input.Phone, "-", ""); phone != "" {
		body.Phone = &phone
	}

	return c.Request(ctx, constants.PathSignup, RequestOptions{
		Method:   http.MethodPost,
		Body:     body,
		SkipAuth: true,
	})
}
