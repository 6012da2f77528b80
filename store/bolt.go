package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"

	"go.etcd.io/bbolt"
)

var (
	deploymentsBucket = []byte("deployments")
	statesBucket       = []byte("states")
)

// BoltDB is the default Store, a single file on the master host's disk
// shared by every cluster member through the orchestration plane rather
// than through the filesystem directly.
type BoltDB struct {
	db *bbolt.DB
}

func NewBoltDB() Store {
	return new(BoltDB)
}

func (this *BoltDB) Init(opts ...Option) error {
	options := NewOptions(opts...)

	u, err := url.Parse(options.Endpoint)
	if err != nil {
		return fmt.Errorf("parsing BoltDB endpoint: %w", err)
	}

	if u.Scheme != "bolt" {
		return fmt.Errorf("invalid scheme '%s' for BoltDB endpoint", u.Scheme)
	}

	this.db, err = bbolt.Open(u.Host+u.Path, 0600, &bbolt.Options{NoFreelistSync: true})
	if err != nil {
		return fmt.Errorf("opening BoltDB file: %w", err)
	}

	return this.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(deploymentsBucket); err != nil {
			return fmt.Errorf("creating deployments bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(statesBucket); err != nil {
			return fmt.Errorf("creating states bucket: %w", err)
		}
		return nil
	})
}

func (this *BoltDB) Close() error {
	return this.db.Close()
}

func (this *BoltDB) ListDeployments() (types.Deployments, error) {
	var deployments types.Deployments

	err := this.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(deploymentsBucket)

		return b.ForEach(func(_, v []byte) error {
			var d types.Deployment
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("unmarshaling deployment JSON: %w", err)
			}
			deployments = append(deployments, d)
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}

	sort.Sort(types.SortByName{Deployments: deployments})

	return deployments, nil
}

func (this *BoltDB) GetDeployment(name string) (*types.Deployment, error) {
	var d types.Deployment

	err := this.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(deploymentsBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("deployment %s does not exist", name)
		}
		return json.Unmarshal(v, &d)
	})

	if err != nil {
		return nil, err
	}

	return &d, nil
}

func (this *BoltDB) PutDeployment(d *types.Deployment) error {
	v, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshaling deployment JSON: %w", err)
	}

	err = this.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(deploymentsBucket).Put([]byte(d.Name), v)
	})

	if err != nil {
		return fmt.Errorf("writing deployment %s: %w", d.Name, err)
	}

	return nil
}

func (this *BoltDB) DeleteDeployment(name string) error {
	err := this.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(deploymentsBucket).Delete([]byte(name)); err != nil {
			return err
		}
		// a deployment's last State is meaningless once the deployment
		// record naming it is gone.
		return tx.Bucket(statesBucket).Delete([]byte(name))
	})

	if err != nil {
		return fmt.Errorf("deleting deployment %s: %w", name, err)
	}

	return nil
}

func (this *BoltDB) GetState(deployment string) (*types.State, error) {
	var s types.State

	err := this.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(statesBucket).Get([]byte(deployment))
		if v == nil {
			return fmt.Errorf("no state stored for deployment %s", deployment)
		}
		return json.Unmarshal(v, &s)
	})

	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (this *BoltDB) PutState(deployment string, state *types.State) error {
	v, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state JSON: %w", err)
	}

	err = this.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(statesBucket).Put([]byte(deployment), v)
	})

	if err != nil {
		return fmt.Errorf("writing state for deployment %s: %w", deployment, err)
	}

	return nil
}

func (this *BoltDB) DeleteState(deployment string) error {
	err := this.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(statesBucket).Delete([]byte(deployment))
	})

	if err != nil {
		return fmt.Errorf("deleting state for deployment %s: %w", deployment, err)
	}

	return nil
}
