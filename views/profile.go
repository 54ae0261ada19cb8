package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/upb/car-park/models"
	"github.com/upb/car-park/sdk"
	"go.uber.org/zap"
)

var profileTemplate = parsePage("profile")

// ProfileAPI is the part of the REST client the profile page uses
type ProfileAPI interface {
	Get(ctx context.Context, apiName, path string, out interface{}) error
	Post(ctx context.Context, apiName, path string, body, out interface{}) error
	Put(ctx context.Context, apiName, path string, body, out interface{}) error
}

type profileData struct {
	Exists   bool
	Profile  *models.Profile
	Error    string
	Problems []string
}

// apiProblem is the error body the REST API answers with
type apiProblem struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

type profileEnvelope struct {
	Data *models.Profile `json:"data"`
}

type profileBody struct {
	Name      string   `json:"name"`
	RegPlates []string `json:"regPlates"`
}

// Profile shows and edits the signed-in user's profile through the REST API
type Profile struct {
	base    string
	api     ProfileAPI
	apiName string
	logger  *zap.Logger
}

// NewProfile creates the profile page backed by the named API
func NewProfile(base string, api ProfileAPI, apiName string, logger *zap.Logger) *Profile {
	return &Profile{
		base:    basePath(base),
		api:     api,
		apiName: apiName,
		logger:  logger,
	}
}

// Render implements View. A user without a stored profile gets an empty form.
func (v *Profile) Render(w http.ResponseWriter, r *http.Request) error {
	var resp profileEnvelope
	err := v.api.Get(r.Context(), v.apiName, "/profile", &resp)

	data := profileData{Exists: true, Profile: resp.Data}
	switch {
	case err == nil && resp.Data != nil:
	case err == nil || sdk.IsStatus(err, http.StatusNotFound):
		data = profileData{Exists: false, Profile: &models.Profile{RegPlates: []string{}}}
	default:
		return fmt.Errorf("load profile: %w", err)
	}

	return render(w, profileTemplate, http.StatusOK, page{
		Title: "Profile",
		Base:  v.base,
		Data:  data,
	})
}

// Submit implements Submitter: it creates or updates the profile from the form
func (v *Profile) Submit(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse profile form: %w", err)
	}

	body := profileBody{
		Name:      r.PostFormValue("name"),
		RegPlates: splitPlates(r.PostFormValue("regPlates")),
	}

	var err error
	if r.PostFormValue("exists") == "true" {
		err = v.api.Put(r.Context(), v.apiName, "/profile", body, nil)
	} else {
		err = v.api.Post(r.Context(), v.apiName, "/profile", body, nil)
	}
	if sdk.IsStatus(err, http.StatusBadRequest) {
		return v.renderRejected(w, r.PostFormValue("exists") == "true", body, err)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	v.logger.Debug("profile saved from form", zap.Int("reg_plates", len(body.RegPlates)))
	http.Redirect(w, r, path.Join(v.base, "profile"), http.StatusSeeOther)
	return nil
}

// renderRejected shows the form again with what the user typed and the
// reasons the API gave for refusing it
func (v *Profile) renderRejected(w http.ResponseWriter, exists bool, body profileBody, err error) error {
	data := profileData{
		Exists:  exists,
		Profile: &models.Profile{Name: body.Name, RegPlates: body.RegPlates},
		Error:   "The profile could not be saved.",
	}

	var apiErr *sdk.APIError
	var problem apiProblem
	if errors.As(err, &apiErr) && json.Unmarshal(apiErr.Body, &problem) == nil {
		if problem.Message != "" {
			data.Error = problem.Message
		}
		for field, reason := range problem.Details {
			data.Problems = append(data.Problems, fmt.Sprintf("%s: %v", field, reason))
		}
		sort.Strings(data.Problems)
	}

	v.logger.Debug("profile form rejected", zap.String("reason", data.Error))
	return render(w, profileTemplate, http.StatusBadRequest, page{
		Title: "Profile",
		Base:  v.base,
		Data:  data,
	})
}

func splitPlates(s string) []string {
	plates := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			plates = append(plates, p)
		}
	}
	return plates
}
