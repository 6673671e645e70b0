package push

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/falconops/pushhosts/internal/falcon"
)

// API is everything the run needs from the Falcon client.
type API interface {
	CCID(ctx context.Context) (string, error)
	QueryDevices(ctx context.Context, filter, offset string, limit int) (*falcon.DevicePage, error)
	QueryGroupMembers(ctx context.Context, groupID, filter, offset string, limit int) (*falcon.DevicePage, error)
	ListPutFiles(ctx context.Context) ([]falcon.PutFile, error)
	CommandExecutor
}

// Run executes the whole push: validate the tenant, enumerate hosts, resolve
// the staged file, then issue the command sequence over one batch session.
// Every stage is fatal on error; nothing is retried or rolled back.
func Run(ctx context.Context, api API, scope Scope, fileHash string) error {
	log.Print("Starting execution of PushHosts")

	if scope.Kind == ScopeCID {
		ccid, err := api.CCID(ctx)
		if err != nil {
			return fmt.Errorf("resolve authenticated tenant: %w", err)
		}
		if !scope.MatchesCCID(ccid) {
			return fmt.Errorf("scope_id %s does not match the authenticated CID %s", scope.ID, ccid)
		}
	}

	var querier DeviceQuerier
	switch scope.Kind {
	case ScopeCID:
		log.Printf("Getting all hosts from CID [%s]", scope.ID)
		querier = cidQuerier{api: api}
	case ScopeHostGroup:
		log.Printf("Getting all hosts from host group ID [%s]", scope.ID)
		querier = groupQuerier{api: api, groupID: scope.ID}
	default:
		return fmt.Errorf("unsupported scope kind %v", scope.Kind)
	}

	hosts, err := EnumerateHosts(ctx, querier)
	if err != nil {
		return err
	}

	file, err := ResolvePutFile(ctx, api, fileHash)
	if err != nil {
		return err
	}

	seq := NewSequencer(api)
	if err := seq.Run(ctx, hosts, Steps(file.Name, time.Now())); err != nil {
		return err
	}

	log.Print("-- Finished launching RTR commands, please check progress in the RTR audit logs")
	log.Print("End")

	return nil
}
