package directupload

import (
	"fmt"
	"io"
	"mime/multipart"
)

// FormField is one name/value pair of the storage form
type FormField struct {
	Name  string
	Value string
}

// Submission is the storage form built from a policy, minus the file part
type Submission struct {
	Fields []FormField
}

// Merge copies the policy fields verbatim into a new submission. A policy
// missing any field yields a MalformedPolicyError and no submission.
// Merging the same policy twice produces equal submissions.
func Merge(policy *UploadPolicy) (*Submission, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	fields := make([]FormField, 0, len(PolicyFields))
	for _, name := range PolicyFields {
		fields = append(fields, FormField{Name: name, Value: policy.Get(name)})
	}
	return &Submission{Fields: fields}, nil
}

// Get returns the value of a form field
func (s *Submission) Get(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// WriteTo encodes the submission as a multipart form, with the file as the
// final part. It closes mw.
func (s *Submission) WriteTo(mw *multipart.Writer, file *SelectedFile) error {
	for _, f := range s.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	part, err := mw.CreateFormFile(FieldFile, file.Name)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, file.Content()); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}

	return mw.Close()
}
