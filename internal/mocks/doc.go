// Package mocks provides shared mock implementations for tests.
//
// Mocks use function fields so each test overrides only the behaviour it
// cares about; unset fields fall back to the zero-value defaults documented
// on each mock.
//
//	b := &mocks.MockJobBroker{
//	    SubmitFn: func(ctx context.Context, name protocol.JobName, payload any) (uuid.UUID, error) {
//	        return jobID, nil
//	    },
//	}
package mocks
