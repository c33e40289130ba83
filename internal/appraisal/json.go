package appraisal

import (
	"encoding/json"
	"fmt"
)

// successEnvelope and errorEnvelope are the two wire shapes of an Appraisal.
// Serialization branches once on Status instead of emitting optional fields
// conditionally, so a success never carries error keys and vice versa.
type successEnvelope struct {
	Status     Status      `json:"status"`
	Project    ProjectRef  `json:"project"`
	FolderPath string      `json:"folder_path"`
	Folder     *FolderNode `json:"folder"`
}

type errorEnvelope struct {
	Status     Status     `json:"status"`
	Project    ProjectRef `json:"project"`
	FolderPath string     `json:"folder_path"`
	ErrorType  ErrorType  `json:"error_type"`
	Message    string     `json:"message"`
}

// MarshalJSON emits the tagged-union wire form.
func (a *Appraisal) MarshalJSON() ([]byte, error) {
	switch a.Status {
	case StatusOK:
		if a.Folder == nil {
			return nil, fmt.Errorf("success appraisal for %s has no folder tree", a.Project.Slug())
		}
		return json.Marshal(successEnvelope{
			Status:     a.Status,
			Project:    a.Project,
			FolderPath: a.FolderPath,
			Folder:     a.Folder,
		})
	case StatusError:
		return json.Marshal(errorEnvelope{
			Status:     a.Status,
			Project:    a.Project,
			FolderPath: a.FolderPath,
			ErrorType:  a.ErrorType,
			Message:    a.Message,
		})
	default:
		return nil, fmt.Errorf("appraisal has unknown status %q", a.Status)
	}
}

// UnmarshalJSON parses either wire form and enforces the envelope invariant:
// a success carries a tree and no error fields, an error carries error fields
// and no tree.
func (a *Appraisal) UnmarshalJSON(raw []byte) error {
	var probe struct {
		Status     Status      `json:"status"`
		Project    ProjectRef  `json:"project"`
		FolderPath string      `json:"folder_path"`
		Folder     *FolderNode `json:"folder"`
		ErrorType  ErrorType   `json:"error_type"`
		Message    string      `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return err
	}
	switch probe.Status {
	case StatusOK:
		if probe.Folder == nil {
			return fmt.Errorf("success appraisal without folder tree")
		}
		if probe.ErrorType != "" {
			return fmt.Errorf("success appraisal carries error_type %q", probe.ErrorType)
		}
	case StatusError:
		if probe.Folder != nil {
			return fmt.Errorf("error appraisal carries a folder tree")
		}
		if probe.ErrorType == "" {
			return fmt.Errorf("error appraisal without error_type")
		}
	default:
		return fmt.Errorf("appraisal has unknown status %q", probe.Status)
	}
	a.Status = probe.Status
	a.Project = probe.Project
	a.FolderPath = probe.FolderPath
	a.Folder = probe.Folder
	a.ErrorType = probe.ErrorType
	a.Message = probe.Message
	return nil
}

// Decode parses a cached appraisal payload.
func Decode(raw []byte) (*Appraisal, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty appraisal payload")
	}
	var a Appraisal
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode appraisal: %w", err)
	}
	return &a, nil
}

// Encode serializes an appraisal for caching or serving.
func (a *Appraisal) Encode() ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode appraisal for %s: %w", a.Project.Slug(), err)
	}
	return raw, nil
}
