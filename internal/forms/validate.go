package forms

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/parisxmas/sangha/internal/models"
)

// Errors maps question id to a human readable message.
type Errors map[string]string

// RequiredMessage is the message recorded for an empty required question.
const RequiredMessage = "This field is required"

// IsEmpty reports whether an answer counts as not given: nil, a blank
// string, false, or an empty list or map. Numeric zero is an answer.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ValidatePage collects an error for every required, answer-collecting
// question on the page whose answer is empty. A nil result means the page
// may be left.
func ValidatePage(page Page, answers map[string]any) Errors {
	var errs Errors
	for _, q := range page.Questions {
		if !q.IsRequired || !q.QuestionType.CollectsAnswer() {
			continue
		}
		if IsEmpty(answers[q.ID]) {
			if errs == nil {
				errs = Errors{}
			}
			errs[q.ID] = RequiredMessage
		}
	}
	return errs
}

// CheckFileType verifies fileName against the question's allowed types.
// Entries may be written as ".pdf", "pdf" or a MIME-ish "application/pdf";
// only the extension part is compared. No restriction when the list is empty.
func CheckFileType(q models.FormQuestion, fileName string) error {
	if len(q.AllowedFileTypes) == 0 {
		return nil
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return fmt.Errorf("file %q has no extension; allowed: %s", fileName, strings.Join(q.AllowedFileTypes, ", "))
	}
	for _, allowed := range q.AllowedFileTypes {
		a := strings.ToLower(strings.TrimSpace(allowed))
		if i := strings.LastIndex(a, "/"); i >= 0 {
			a = a[i+1:]
		}
		a = strings.TrimPrefix(a, ".")
		if a == ext || (a == "jpeg" && ext == "jpg") || (a == "jpg" && ext == "jpeg") {
			return nil
		}
	}
	return fmt.Errorf("file type .%s not allowed; allowed: %s", ext, strings.Join(q.AllowedFileTypes, ", "))
}
