package racecar

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// FeetechChannels drives Feetech STS serial bus servos. Steering uses a
// servo in position mode; targets are raw positions (0-4095).
type FeetechChannels struct {
	bus   *feetech.Bus
	group *feetech.ServoGroup
}

// OpenFeetech opens the servo bus and enables torque on the given IDs.
func OpenFeetech(ctx context.Context, port string, ids ...int) (*FeetechChannels, error) {
	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, ids...)
	if err := group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servos: %w", err)
	}

	return &FeetechChannels{
		bus:   bus,
		group: group,
	}, nil
}

// SetTarget moves servo id to a raw position.
func (f *FeetechChannels) SetTarget(ctx context.Context, id, target int) error {
	if err := f.group.SetPositions(ctx, feetech.PositionMap{id: target}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return nil
}

// Close disables torque and closes the bus connection.
func (f *FeetechChannels) Close() error {
	// The car context is already cancelled when Close runs.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	disableErr := f.group.DisableAll(ctx)
	if err := f.bus.Close(); err != nil {
		return err
	}
	if disableErr != nil {
		return fmt.Errorf("disable servos: %w", disableErr)
	}
	return nil
}
