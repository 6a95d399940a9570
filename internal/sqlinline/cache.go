package sqlinline

const QInsertCacheEntry = `--sql a9b8c7d6-e5f4-4312-90a1-b2c3d4e5f613
insert into cache_entries(id, kind, model, prompt, result, embedding, hit_count, cached_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::bytea, 0, now());
`

const QSelectCacheCandidates = `--sql e5f4a3b2-c1d0-4e9f-8a7b-6c5d4e3f2114
select id, embedding
from cache_entries
where kind = $1::text
  and ($2::text = '' or model = $2::text)
order by cached_at asc;
`

const QSelectCacheEntry = `--sql c7d6e5f4-a3b2-41c0-9d8e-7f6a5b4c3215
select id, kind, model, prompt, result, embedding, hit_count, cached_at, last_hit_at
from cache_entries
where id = $1::uuid;
`

const QRecordCacheHit = `--sql f1e0d9c8-b7a6-4543-82f1-a0b9c8d7e616
update cache_entries
set hit_count = hit_count + 1, last_hit_at = now()
where id = $1::uuid;
`

const QCacheStats = `--sql 0a9b8c7d-6e5f-4432-91a0-b9c8d7e6f517
select count(*) filter (where kind = 'text'),
       count(*) filter (where kind = 'image')
from cache_entries;
`
