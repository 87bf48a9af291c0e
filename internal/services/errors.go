package services

import (
	"mailroom/internal/common"
	"mailroom/pkg/database"
)

// repoError classifies a repository failure: missing rows become NotFound
// for resource, unique violations become Conflict, anything else goes
// through storeError.
func repoError(err error, resource, operation string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return common.NewNotFoundError(resource)
	case database.IsUniqueViolation(err):
		return common.NewConflictError(resource + " already exists")
	case database.IsForeignKeyViolation(err):
		return common.NewValidationError(resource + " references a record that does not exist")
	default:
		if _, ok := common.AsAppError(err); ok {
			return err
		}
		return storeError(operation, err)
	}
}

// storeError wraps a storage failure the client cannot act on. A missing
// table or column means the configured schema variant does not match the
// database.
func storeError(operation string, err error) error {
	if database.IsSchemaMissing(err) {
		return common.NewSchemaError(operation+": table or column missing for the configured schema variant", err)
	}
	return common.NewUnexpectedError(operation, err)
}
