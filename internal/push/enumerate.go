package push

import (
	"context"
	"fmt"
	"log"

	"github.com/falconops/pushhosts/internal/falcon"
)

// pageSize is the maximum the inventory API supports per request.
const pageSize = 5000

// DeviceQuerier fetches one page of device IDs. An empty offset requests the
// first page; later calls pass the cursor returned by the previous page.
type DeviceQuerier interface {
	QueryPage(ctx context.Context, offset string, limit int) (*falcon.DevicePage, error)
}

// EnumerateHosts walks the full inventory behind q and returns every device
// ID. It stops once the accumulated count reaches the total the API reports.
func EnumerateHosts(ctx context.Context, q DeviceQuerier) ([]string, error) {
	var hosts []string
	offset := ""

	for {
		page, err := q.QueryPage(ctx, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch host page: %w", err)
		}

		offset = page.Offset
		hosts = append(hosts, page.Resources...)

		log.Printf("-- Fetched %d hosts, %d/%d", len(page.Resources), len(hosts), page.Total)

		if len(hosts) >= page.Total {
			break
		}
	}

	log.Printf("-- Retrieved a total of %d hosts", len(hosts))

	return hosts, nil
}

type cidQuerier struct {
	api API
}

func (q cidQuerier) QueryPage(ctx context.Context, offset string, limit int) (*falcon.DevicePage, error) {
	return q.api.QueryDevices(ctx, falcon.WindowsFilter, offset, limit)
}

type groupQuerier struct {
	api     API
	groupID string
}

func (q groupQuerier) QueryPage(ctx context.Context, offset string, limit int) (*falcon.DevicePage, error) {
	return q.api.QueryGroupMembers(ctx, q.groupID, falcon.WindowsFilter, offset, limit)
}
