package bolt

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/repos/addrstore"
)

var (
	bucketZones = []byte("zones")
	bucketMeta  = []byte("meta")
	keyUpdated  = []byte("updated")
)

// boltStore implements addrstore.Store using bbolt.
//
// Names are grouped into one nested bucket per registrable domain under
// "zones". Each value is the packed list of 4-byte IPv4 addresses for that
// name, in insertion order.
type boltStore struct {
	db    *bbolt.DB
	clock clock.Clock
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string, clk clock.Clock) (addrstore.Store, error) {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketZones); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db, clock: clk}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) Get(name string) ([]netip.Addr, error) {
	var out []netip.Addr
	err := s.db.View(func(tx *bbolt.Tx) error {
		zone := tx.Bucket(bucketZones).Bucket([]byte(utils.ApexDomain(name)))
		if zone == nil {
			return nil
		}
		out = unpack(zone.Get([]byte(name)))
		return nil
	})
	return out, err
}

func (s *boltStore) Add(name string, addr netip.Addr) (bool, error) {
	if !addr.Is4() {
		return false, fmt.Errorf("%w: %s", addrstore.ErrInvalidEntry, addr)
	}
	var added bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		zone, err := tx.Bucket(bucketZones).CreateBucketIfNotExists([]byte(utils.ApexDomain(name)))
		if err != nil {
			return err
		}
		cur := zone.Get([]byte(name))
		for _, a := range unpack(cur) {
			if a == addr {
				return nil
			}
		}
		ip := addr.As4()
		next := make([]byte, 0, len(cur)+4)
		next = append(next, cur...)
		next = append(next, ip[:]...)
		if err := zone.Put([]byte(name), next); err != nil {
			return err
		}
		added = true
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(ubuf, uint64(s.clock.Now().Unix()))
		return tx.Bucket(bucketMeta).Put(keyUpdated, ubuf)
	})
	return added, err
}

func (s *boltStore) ForEach(visit func(name string, addrs []netip.Addr) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		zones := tx.Bucket(bucketZones)
		return zones.ForEachBucket(func(k []byte) error {
			return zones.Bucket(k).ForEach(func(name, v []byte) error {
				return visit(string(name), unpack(v))
			})
		})
	})
}

func (s *boltStore) Stats() addrstore.StoreStats {
	st := addrstore.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		zones := tx.Bucket(bucketZones)
		_ = zones.ForEachBucket(func(k []byte) error {
			return zones.Bucket(k).ForEach(func(_, v []byte) error {
				st.Names++
				st.Addresses += uint64(len(v) / 4)
				return nil
			})
		})
		if v := tx.Bucket(bucketMeta).Get(keyUpdated); len(v) == 8 {
			st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	return st
}

// unpack copies the packed addresses out of a Bolt value, which is only
// valid for the life of the transaction.
func unpack(v []byte) []netip.Addr {
	if len(v) < 4 {
		return nil
	}
	out := make([]netip.Addr, 0, len(v)/4)
	for i := 0; i+4 <= len(v); i += 4 {
		out = append(out, netip.AddrFrom4([4]byte(v[i:i+4])))
	}
	return out
}

var _ addrstore.Store = (*boltStore)(nil)
