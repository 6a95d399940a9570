package sqlinline

const QInsertCreative = `--sql 1f2e3d4c-5b6a-4798-8f0e-9d8c7b6a5411
insert into creatives(id, campaign_id, name, content_kind, content_text, asset_url, prompt, status, meta, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text, coalesce($9::jsonb, '{}'::jsonb), now());
`

const QSelectBatchCreatives = `--sql 4d3c2b1a-0f9e-48d7-b6a5-c4b3a2d1e012
select id, campaign_id, name, content_kind, content_text, asset_url, prompt, status, meta, created_at
from creatives
where meta->>'batch_job_id' = $1::text
order by (meta->>'index')::int asc;
`
